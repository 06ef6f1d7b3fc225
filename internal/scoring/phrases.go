package scoring

// Reference phrases for the embedding-similarity classifiers.
const (
	PhraseTechnical = "function method variable type interface error handling null pointer " +
		"race condition concurrency performance memory allocation algorithm complexity " +
		"refactor implementation edge case boundary check exception"
	PhraseGeneric = "looks good to me, LGTM, nice work, great job, thanks, approved, " +
		"good stuff, well done, ship it"
	PhraseSuggestion = "consider changing this to, you could use, suggest replacing with, " +
		"instead of this try, it would be better to, how about using"
	PhraseBot = "automated report generated by bot: coverage decreased, lint warnings found, " +
		"build status, ci check failed, dependency update available"
	PhraseHuman = "I think we should discuss this approach, what do you think, " +
		"could you explain why, I am not sure about this"
	PhraseBotAuthor = "bot automation ci github-actions dependabot renovate codecov sonarcloud"
	PhraseTest      = "unit test spec mock fixture assertion test coverage testing " +
		"test file test case expect"
)

// Phrase is a named reference phrase used for area and technology inference.
type Phrase struct {
	Name string
	Text string
}

// AreaPhrases describe the part of a system a comment or file belongs to.
var AreaPhrases = []Phrase{
	{"frontend", "frontend ui component react vue css html browser rendering layout"},
	{"backend", "backend api server handler endpoint request response service middleware"},
	{"database", "database sql schema migration query index transaction table column"},
	{"infrastructure", "infrastructure deployment docker kubernetes ci pipeline terraform helm"},
	{"security", "security authentication authorization token password encryption vulnerability injection"},
	{"testing", "testing unit test mock assertion fixture coverage integration test"},
}

// TechnologyPhrases describe the dominant language or technology of a text.
var TechnologyPhrases = []Phrase{
	{"go", "go golang goroutine channel struct interface package func defer err != nil"},
	{"javascript", "javascript typescript node npm react promise async await const let"},
	{"python", "python def import pip django flask self __init__ pytest"},
	{"java", "java class public static void spring maven gradle"},
	{"sql", "sql select insert update delete join where table"},
	{"rust", "rust fn impl trait cargo borrow lifetime"},
}

// DefaultKeywords earn the chunk reranker's keyword bonus when found in a
// comment body (case-insensitive).
var DefaultKeywords = []string{
	"ignore",
	"coverage",
	"istanbul",
	"nolint",
	"noqa",
	"pragma",
	"test",
	"skip",
}
