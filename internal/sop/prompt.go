package sop

import (
	"github.com/kothari1/NuFleet-AI-SOP/internal/genai"
)

// The instruction block below is a stable protocol, not per-request input: the
// timestamp tag grammar feeds the annotator, the mermaid fence feeds the
// renderer, and the seven sections feed the document consumers. Changing any
// of it breaks downstream parsing.
var instructionParts = []string{
	"You are an expert technical writer and engineer with decades of experience in verifying and documenting maintenance procedures.",
	"Your task is to analyze the provided video content (visuals and audio) along with the technician's observations to create a comprehensive Standard Operating Procedure (SOP) and Maintenance/Diagnostics Documentation.",
	"The documentation should be clear, concise, and easy to follow for new technicians.",
	"Please extract tribal knowledge demonstrated or spoken in the video.",
	"**Visuals**: For every critical step where a specific visual action is performed (e.g., removing a specific part, checking a gauge), you MUST include a timestamp tag in the exact format `[TIMESTAMP: MM:SS]`. Place this tag immediately after the step description.",
	"**Diagrams**: At the end of the SOP, include a Mermaid.js flowchart (using ```mermaid ... ``` block) validating the troubleshooting logic or the process flow.",
	"Structure the output in Markdown with the following sections:",
	"1.  **Title & Objective**: Clear title and the goal of the procedure.",
	"2.  **Safety Warnings**: Critical safety precautions mentioned or observed (e.g., PPE, lock-out tag-out).",
	"3.  **Tools & Materials**: List of tools and parts seen or mentioned.",
	"4.  **Step-by-Step Instructions**: Chronological steps with detailed descriptions. REMEMBER to include `[TIMESTAMP: MM:SS]` for key visual steps.",
	"5.  **Troubleshooting/Diagnostics**: If the video covers diagnostics, detail the symptoms and the logic for the fix.",
	"6.  **Tribal Knowledge/Tips**: Specific expert tips or 'gotchas' mentioned by the technician that aren't in standard manuals.",
	"7.  **Process Flow**: A Mermaid diagram of the procedure.",
}

// ComposePrompt assembles the ordered generation request: the fixed
// instruction block, the video reference, the technician's optional notes and
// image, and the closing directive. Order is significant; the model is
// sensitive to part ordering and to the proximity of related content.
func ComposePrompt(video *genai.File, observationText string, image *genai.File) []genai.Part {
	parts := make([]genai.Part, 0, len(instructionParts)+5)
	for _, text := range instructionParts {
		parts = append(parts, genai.TextPart(text))
	}

	parts = append(parts, genai.TextPart("\nHere is the video of the procedure:"))
	parts = append(parts, genai.FilePart(video))

	if observationText != "" {
		parts = append(parts, genai.TextPart("\nTechnician's Observations:\n"+observationText))
	}

	if image != nil {
		parts = append(parts, genai.TextPart("\nAdditional Visual Context:"))
		parts = append(parts, genai.FilePart(image))
	}

	parts = append(parts, genai.TextPart("\nGenerate the SOP now."))
	return parts
}
