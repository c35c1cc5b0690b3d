package audience

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Prompts holds the system prompts used by the dialogue stages. Zero
// fields fall back to the defaults, so an override file only needs the
// prompts it changes.
type Prompts struct {
	// Greeting opens the conversation.
	Greeting string `yaml:"greeting"`

	// Extraction instructs the structured product extraction.
	Extraction string `yaml:"extraction"`

	// Clarification asks the user to name a product.
	Clarification string `yaml:"clarification"`

	// Confirmation acknowledges an identified product.
	Confirmation string `yaml:"confirmation"`

	// Summary summarizes search results by category.
	Summary string `yaml:"summary"`

	// NotFound apologizes for a product the catalog does not know.
	NotFound string `yaml:"notFound"`

	// LookupRetry apologizes for a catalog outage and invites a retry.
	LookupRetry string `yaml:"lookupRetry"`

	// TableFormat renders the result table.
	TableFormat string `yaml:"tableFormat"`
}

const defaultGreetingPrompt = `You are an audience building assistant for retail media.
Greet the user warmly and ask which product they'd like to build audiences for.

Don't sound cheesy or corporate.`

const defaultExtractionPrompt = `Extract the product that the user wants to build audiences for.

Respond ONLY with JSON in this format:
{"mentioned": <true if a product was mentioned>, "product_name": "<the product name, or null>"}`

const defaultClarificationPrompt = `You are an audience building assistant for retail media.

The user hasn't clearly named a product yet. Ask them, politely and briefly,
to specify which product they'd like to build audiences for.`

const defaultConfirmationPrompt = `You are an audience building assistant for retail media.

The user wants to build audiences for the product named in the message.
Respond with a brief, friendly confirmation that you'll help them build
audiences for this product.`

const defaultSummaryPrompt = `You are an audience building assistant for retail media.

You just ran a catalog search for the product named in the message and
found similar product variants, grouped by Buyer Category and Product
Category. The search results follow the product name.

Respond warmly to the user confirming the product name. Summarise the
variants that were found, naming the unique Buyer Categories and Product
Categories.

Do not say 'Hi' or 'Hello' or anything like that. You have already
spoken with the user.`

const defaultNotFoundPrompt = `You are an audience building assistant for retail media.

The product named in the message could not be found in the catalog.
Politely inform the user that you couldn't find this product and ask if
they'd like to try a different one.`

const defaultLookupRetryPrompt = `You are an audience building assistant for retail media.

The catalog could not be reached while looking up the product named in
the message. Apologise briefly and ask the user to try again, or to name
a different product.`

const defaultTableFormatPrompt = `You are a data formatter that creates clean, readable summaries from product data.

The message contains search results: buyer categories, product
categories, a total count, and product lines.

1. First, provide a brief summary of the search results.
2. Then create a well-formatted markdown table of the most relevant products.
3. Include columns for: Buyer Category, Product Category, SKU, Product Name.
4. Show at most 10 products total.`

// DefaultPrompts returns the built-in prompt set.
func DefaultPrompts() Prompts {
	return Prompts{
		Greeting:      defaultGreetingPrompt,
		Extraction:    defaultExtractionPrompt,
		Clarification: defaultClarificationPrompt,
		Confirmation:  defaultConfirmationPrompt,
		Summary:       defaultSummaryPrompt,
		NotFound:      defaultNotFoundPrompt,
		LookupRetry:   defaultLookupRetryPrompt,
		TableFormat:   defaultTableFormatPrompt,
	}
}

// withDefaults fills empty prompt fields from the built-in set.
func (p Prompts) withDefaults() Prompts {
	defaults := DefaultPrompts()
	if p.Greeting == "" {
		p.Greeting = defaults.Greeting
	}
	if p.Extraction == "" {
		p.Extraction = defaults.Extraction
	}
	if p.Clarification == "" {
		p.Clarification = defaults.Clarification
	}
	if p.Confirmation == "" {
		p.Confirmation = defaults.Confirmation
	}
	if p.Summary == "" {
		p.Summary = defaults.Summary
	}
	if p.NotFound == "" {
		p.NotFound = defaults.NotFound
	}
	if p.LookupRetry == "" {
		p.LookupRetry = defaults.LookupRetry
	}
	if p.TableFormat == "" {
		p.TableFormat = defaults.TableFormat
	}
	return p
}

// LoadPromptsFile loads prompt overrides from a YAML file. Prompts not
// present in the file keep their defaults.
func LoadPromptsFile(path string) (Prompts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Prompts{}, fmt.Errorf("failed to read prompts file: %w", err)
	}

	var p Prompts
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Prompts{}, fmt.Errorf("failed to parse prompts file: %w", err)
	}

	return p.withDefaults(), nil
}
