package ai

const systemInstruction = "You are an expert presentation structure designer. " +
	"Create a concise, structured outline where each slide is optimized for presentation. " +
	"The output MUST be valid JSON: a list of objects with 'title' (string) and 'content' (list of strings)."

const cleanPrompt = "You are a professional text cleaner and content synthesizer. " +
	"Take the messy raw text which may contain OCR errors, bad formatting, " +
	"line-break issues, duplicates, headers/footers, and noise. " +
	"Fix everything but DO NOT summarize or omit content. " +
	"Preserve headings, bullet points, and structure.\n\n" +
	"Clean and structure the following raw OCR text:\n\n%s\n\n" +
	"Return ONLY the cleaned text."

const outlinePrompt = `You must generate a presentation structure in STRICT JSON ONLY.

CLEANED_TEXT:
"""%s"""

TASK:
- Convert the cleaned text into a PowerPoint-style structure.
- Create clear slide titles.
- Add bullet points. Prefix a sub-point with "** ".
- Expand content when needed.
- NO explanations.
- NO text outside JSON.
- JSON must be:
[
  {"title": "...", "content": ["...", "..."]}
]`

const revisePrompt = `Return ONLY valid JSON.

CURRENT_JSON:
"""%s"""

USER_INSTRUCTION:
"""%s"""

TASK:
- Modify the JSON according to the instruction.
- Keep the same shape: a list of {"title", "content"} objects.
- Do not add text outside JSON.`

const transcribePrompt = "Extract ALL text accurately. Preserve formatting, steps, bullet points and equations. Do NOT summarize."
