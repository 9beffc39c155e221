package oracle

import (
	"fmt"
	"strings"

	"github.com/dgallion1/pagewright/internal/element"
	"github.com/dgallion1/pagewright/internal/patch"
)

const BuildSystemPrompt = `You are an expert UI/UX designer and frontend developer.
Your mission is to create a complete, single HTML file based on the user's request.

Core directives:
1. Single file output: your entire response MUST be one complete HTML file. Start with <!DOCTYPE html> and end with </html>.
2. Styling with TailwindCSS: use Tailwind CSS for styling through the official CDN script (<script src="https://cdn.tailwindcss.com"></script>) in the <head>. Do not link external CSS files.
3. Responsiveness: the design must work on desktop and mobile. Use Tailwind's responsive modifiers (sm:, md:, lg:).
4. No explanations: do NOT include explanations or markdown formatting outside of the HTML code itself.
5. Quality: elaborate on the user's prompt to produce something visually appealing, modern and unique.`

// PatchSystemPrompt instructs the model to answer with search/replace blocks
// in the DefaultMarkers format.
var PatchSystemPrompt = fmt.Sprintf(`You are an expert web developer specializing in precise code modifications on an existing HTML file.
The user wants to apply changes based on their request.

You MUST output ONLY the required changes using the following SEARCH/REPLACE block format. Do NOT output the entire file.

Format rules:
1. Start a block with %[1]s.
2. On the following lines, provide the exact, verbatim lines from the current code that need to be replaced.
3. Use %[2]s to separate the search block from the replacement block.
4. On the following lines, provide the new code that should replace the original lines.
5. End the block with %[3]s.
6. You can use multiple SEARCH/REPLACE blocks if changes are needed in different parts of the file.
7. To insert code: provide the line before the insertion point in the SEARCH block, then include that line plus the new lines in the REPLACE block.
8. To delete code: provide the lines to delete in the SEARCH block and leave the REPLACE block empty.
9. CRITICAL: the SEARCH block must exactly match the current code, including all indentation and whitespace.`,
	patch.DefaultMarkers.Search, patch.DefaultMarkers.Divider, patch.DefaultMarkers.ReplaceEnd)

const RewriteSingularSystemPrompt = `You rewrite exactly one simple HTML tag, such as a heading, button, link or image.
Return ONLY the rewritten tag. Keep the same tag name unless the instruction demands otherwise.
Keep existing classes and attributes unless the instruction changes them.
No markdown, no explanations, no surrounding elements.`

const RewriteComplexSystemPrompt = `You rewrite one HTML component, such as a section, card or navigation bar, following the user's instruction.
Return ONLY the rewritten element, with a single root element.
Change only what the instruction asks for; preserve all other structure, classes, text and attributes.
Use Tailwind CSS classes for any new styling.
No markdown, no explanations, nothing before or after the element.`

// SurgicalEditSystemPrompt instructs the model to edit the one element
// carrying the marker attribute and return the whole document.
var SurgicalEditSystemPrompt = fmt.Sprintf(`You are an expert frontend developer performing a surgical edit on an existing HTML document.
Exactly one element in the document carries the attribute %[1]s="true". That element is the target.

Rules:
1. Apply the user's instruction to the target element and its contents only.
2. Leave every other part of the document byte for byte as it was, including the head, styles and scripts.
3. You may remove the %[1]s attribute or keep it; it is stripped afterwards either way.
4. Return the COMPLETE updated document, starting with <!DOCTYPE html> and ending with </html>.
5. No markdown, no explanations.`, element.DefaultMarker)

// SurgicalEditUserPrompt sends the marked document with the instruction.
func SurgicalEditUserPrompt(prompt, markedDoc string) string {
	var sb strings.Builder
	sb.WriteString("Full HTML document:\n```html\n")
	sb.WriteString(markedDoc)
	sb.WriteString("\n```\n\n")
	fmt.Fprintf(&sb, "Instruction: '%s'\n", prompt)
	return sb.String()
}

// BuildUserPrompt wraps the user's page description.
func BuildUserPrompt(prompt string) string {
	return strings.TrimSpace(prompt)
}

// PatchUserPrompt asks for a diff against doc. When selected is set the edit
// is confined to that element.
func PatchUserPrompt(prompt, doc, selected string) string {
	var sb strings.Builder
	if selected != "" {
		sb.WriteString("The full HTML document is:\n```html\n")
		sb.WriteString(doc)
		sb.WriteString("\n```\n\nMy request is to modify ONLY the following element:\n```html\n")
		sb.WriteString(selected)
		sb.WriteString("\n```\n\n")
		fmt.Fprintf(&sb, "My specific instruction for this element is: '%s'\n\n", prompt)
		sb.WriteString("Please provide the diff patch to update just that element.")
		return sb.String()
	}
	sb.WriteString("The current HTML document is:\n```html\n")
	sb.WriteString(doc)
	sb.WriteString("\n```\n\n")
	fmt.Fprintf(&sb, "My request for a global page update is: '%s'", prompt)
	return sb.String()
}

// RewriteSystemPrompt picks the rewrite prompt for an element.
func RewriteSystemPrompt(singular bool) string {
	if singular {
		return RewriteSingularSystemPrompt
	}
	return RewriteComplexSystemPrompt
}

// RewriteUserPrompt asks for a new version of one element.
func RewriteUserPrompt(prompt, elementHTML string) string {
	var sb strings.Builder
	sb.WriteString("Original HTML element:\n```html\n")
	sb.WriteString(elementHTML)
	sb.WriteString("\n```\n\n")
	fmt.Fprintf(&sb, "Instruction: '%s'\n\n", prompt)
	sb.WriteString("Rewrite the HTML element above to ONLY fulfill the instruction. ")
	sb.WriteString("Your response MUST be the new element's code and nothing else.")
	return sb.String()
}
