package people

import "regexp"

// name captures a capitalised given name. Keyword parts of the templates are
// case-insensitive; names stay case-sensitive so ordinary words are skipped.
const name = `([A-Z][a-z]+)`

// andName optionally captures a second name joined by "and".
const andName = `(?:\s+(?i:and)\s+` + name + `)?`

// template is one assignee pattern family. Self templates point at the
// current speaker instead of a captured name.
type template struct {
	id    string
	regex *regexp.Regexp
	self  bool
}

// assigneeTemplates are ranked; all of them run and hits are kept in this
// order.
var assigneeTemplates = []template{
	{id: "direct_assignment", regex: regexp.MustCompile(`\b` + name + `,?\s+(?i:you\s+)?(?i:will|should|need to|have to|can you|could you|would you|please)\b`)},
	{id: "responsible", regex: regexp.MustCompile(`\b` + name + `\s+(?i:is|will be)\s+(?i:responsible for|in charge of|handling|owning|leading)\b`)},
	{id: "lets_have", regex: regexp.MustCompile(`(?i:\blet'?s\s+have)\s+` + name + andName)},
	{id: "want_to", regex: regexp.MustCompile(`(?i:\bI(?:'d| would)?\s+(?:want|like|need))\s+` + name + andName + `\s+(?i:to)\b`)},
	{id: "will_handle", regex: regexp.MustCompile(`\b` + name + `(?:\s+(?i:will|can|should|is going to)|'ll)\s+(?i:handle|take care of|take|own|lead|cover|work on|look into|do|drive)\b`)},
	{id: "assign_to", regex: regexp.MustCompile(`(?i:\b(?:assign(?:ed)?|delegate(?:d)?|give|hand)\s+(?:(?:it|this|that)\s+)?to)\s+` + name + andName)},
	{id: "collaborative", regex: regexp.MustCompile(`\b` + name + `\s+(?i:and)\s+` + name + `,\s+(?i:you both|could you|can you|would you|please|you two|both of you)`)},
	{id: "ampersand", regex: regexp.MustCompile(`\b` + name + `\s*&\s*` + name + `\b`)},
	{id: "list", regex: regexp.MustCompile(`\b` + name + `,\s+` + name + `,?\s+(?i:and)\s+` + name + `\b`)},
	{id: "self_commitment", regex: regexp.MustCompile(`(?i)\b(?:I'll|I will|I'm going to|I am going to|I can|I should|I'm on it|let me)\b`), self: true},
	{id: "we_will_response", regex: regexp.MustCompile(`(?i)^\W*(?:yes|yeah|sure|ok|okay|sounds good|absolutely|definitely)\b[\s,.!]*we'll\b`), self: true},
	{id: "have_do", regex: regexp.MustCompile(`(?i:\b(?:have|ask|tell|get))\s+` + name + andName + `\s+(?i:to\s+)?(?i:do|handle|take|lead|work|prepare|review|send|look|check|write|update|draft|set|follow|reach)\b`)},
	{id: "possessive_task", regex: regexp.MustCompile(`\b` + name + `'s\s+(?i:task|job|responsibility|action item)\s+(?i:is|will be)\b`)},
}

// mentionPatterns find names the speaker-map pass tries to bind: direct
// address and third-person mentions.
var mentionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^` + name + `,\s+`),
	regexp.MustCompile(`,\s+` + name + `\?`),
	regexp.MustCompile(`(?i:\b(?:have|let|ask|tell|get))\s+` + name + `\s+(?i:to\s+)?(?i:do|handle|take|lead|work|look|prepare|review|send|check|write|update|draft|set)\b`),
	regexp.MustCompile(`\b` + name + `\s+(?i:will|should|can|could|would|needs? to|has to|is going to)\b`),
	regexp.MustCompile(`\b` + name + `'s\s+(?i:going to|gonna|responsible|task|job)\b`),
	regexp.MustCompile(`(?i:\b(?:assign(?:ed)?|give|gave|delegate(?:d)?|hand)\s+(?:(?:it|this|that)\s+)?(?:to\s+)?)` + name + `\b`),
}

// affirmative matches a response that accepts a request or assignment. It
// must open the response.
var affirmative = regexp.MustCompile(`(?i)^\W*(?:yes|yeah|yep|sure|okay|ok|got it|will do|sounds good|happy to|understood|copy that|perfect|great|alright|absolutely|on it|no problem|i'll|i will|i can)\b`)

// IsAffirmative reports whether text opens with an acceptance.
func IsAffirmative(text string) bool {
	return affirmative.MatchString(text)
}
