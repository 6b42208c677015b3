package llm

import (
	"fmt"
	"strings"
)

// MaxPromptContent is the number of characters of page content included
// in an extraction prompt.
const MaxPromptContent = 15000

// PromptOptions tunes BuildPrompt.
type PromptOptions struct {
	// TargetLanguage, when set, asks for description and specifications
	// translated into that language.
	TargetLanguage string
}

type field struct {
	key      string
	goal     string
	strategy string
}

func fields(lang string) []field {
	description := "A detailed, multi-sentence summary of the product's features and purpose."
	specifications := "A dictionary (key-value pairs) of all available technical specifications."
	if lang != "" {
		description = fmt.Sprintf("A detailed, multi-sentence summary of the product's features and purpose, translated into %s.", lang)
		specifications = fmt.Sprintf("A dictionary (key-value pairs) of all available technical specifications, with both the attribute names (keys) and their values translated into %s.", lang)
	}
	return []field{
		{
			key:      "product_name",
			goal:     "The full, official name of the product.",
			strategy: "This is typically the most prominent headline at the top of the page. Prioritize text from `H1` tags, but also consider `H2`s or other large, standalone text near the beginning if the `H1` seems generic or incorrect.",
		},
		{
			key:      "description",
			goal:     description,
			strategy: "Look for one or more consecutive paragraphs (`P` tags) that describe the product's main features and purpose. This should be descriptive text, not short marketing taglines, customer reviews, technical lists, or shipping information.",
		},
		{
			key:      "specifications",
			goal:     specifications,
			strategy: "This information is often found in structured elements. Look for `TABLE`s (with `TH` and `TD` tags) or `UL`/`LI` lists. It can also appear as lines of text with a clear 'Key: Value' format (e.g., 'Color: Red'). Gather these attributes into a dictionary.",
		},
	}
}

// BuildPrompt assembles the extraction prompt for one page. content is the
// tag-line (or markdown) rendering of the page; only its first
// MaxPromptContent characters are included.
func BuildPrompt(content string, opts PromptOptions) string {
	var b strings.Builder

	b.WriteString("You are an expert web content analyst specializing in product information extraction.\n")
	b.WriteString("The content I provide is a simplified representation of a webpage's structure, with each line prefixed by its HTML tag (e.g., 'TAG:H1', 'TAG:P').\n\n")
	if opts.TargetLanguage != "" {
		fmt.Fprintf(&b, "Your mission is to analyze this structured content and accurately extract the information, translating the description and specifications into %s, based on the following schema and guidelines, formatting it into a single, clean JSON object.\n\n", opts.TargetLanguage)
	} else {
		b.WriteString("Your mission is to analyze this structured content and accurately extract the information based on the following schema and guidelines, formatting it into a single, clean JSON object.\n\n")
	}

	b.WriteString("---\n**EXTRACTION SCHEMA AND GUIDELINES**\n")
	for _, f := range fields(opts.TargetLanguage) {
		fmt.Fprintf(&b, "\n- For the key %q:\n  - Your Goal: %s\n  - General Strategy: %s\n", f.key, f.goal, f.strategy)
	}
	b.WriteString("---\n\n")

	b.WriteString("**CRITICAL INSTRUCTIONS:**\n")
	b.WriteString("1.  Analyze the provided content step-by-step using the strategies above.\n")
	b.WriteString("2.  Your output MUST be a single, minified JSON object. Do not include any other text, explanations, or markdown formatting like ```json.\n")
	if opts.TargetLanguage != "" {
		b.WriteString("3.  If a piece of information cannot be found for any field, you MUST use the value \"Not found\". Do not invent data, but you can translate.\n")
	} else {
		b.WriteString("3.  If a piece of information cannot be found for any field, you MUST use the value \"Not found\". Do not invent data.\n")
	}
	b.WriteString("4.  If you find any physical addresses in the content (e.g., street names, cities, postal codes, P.O. boxes), you MUST NOT include them in the final JSON output. Exclude them completely.\n\n")

	b.WriteString("---\n**STRUCTURED WEBSITE CONTENT**\n")
	b.WriteString(Truncate(content, MaxPromptContent))
	b.WriteString("\n---\n\n**JSON_OUTPUT:**\n")
	return b.String()
}

// TranslationPrompt asks for the string values of a JSON record translated
// into lang, keeping keys and structure.
func TranslationPrompt(recordJSON, lang string) string {
	return fmt.Sprintf(`You are an automated JSON translation service. Your task is to translate the **values** of a given JSON object from English to %s. You must follow these rules strictly:
1.  Translate **only the string values**. Do not translate keys, numbers, booleans, or nulls.
2.  The structure of the output JSON must be **identical** to the input JSON.
3.  Do not add any explanations, comments, or markdown formatting. Respond ONLY with the translated JSON object.

%s`, lang, recordJSON)
}

// Truncate returns the first n characters of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
