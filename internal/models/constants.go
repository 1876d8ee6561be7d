package models

// MetaPaperID is the metadata key every embedding record must carry.
const MetaPaperID = "paper_id"

var (
	PagePriorityPromptTemplate = `The user is reading a research paper (ID: %s) and is currently on page %s.
Answer the question below using the material provided. Rely on the current
page content first; consult the related document fragments only when the
page alone is not enough or the question is broader than one page.

%s

%s

---
Question: %s
---

Answer (respond in %s, use Markdown where it helps readability):`

	DocumentPriorityPromptTemplate = `The user is reading a research paper (ID: %s).
Answer the question below based primarily on the fragments retrieved from
the whole paper. Unless the question names a specific page the fragments do
not cover, stay within what the fragments say.

%s

---
Question: %s
---

Answer (respond in %s, use Markdown where it helps readability):`

	TranslatePromptTemplate = `Translate the following text into %s. Output only the translated
text, without any extra quotes or commentary.

Original:
'''
%s
'''

Translation:`

	AnalyzePagePromptTemplate = `Analyze the academic content of this image, taken from page %s of a
research paper: text, tables, figures and layout. Give a concise summary and
explanation of the key information on the page. Respond in %s and format the
answer with Markdown (lists, bold) for readability.`
)

const (
	PageSectionHeader    = "Current page content (page %d):"
	PageTextPlaceholder  = "(no page content is available)"
	EmptyPagePlaceholder = "(the page contains no extractable text)"

	FragmentsHeader      = "Related document fragments (for reference):"
	FragmentLabel        = "--- Fragment %d ---"
	FragmentsPlaceholder = "(no relevant fragments were found in the document)"
)
