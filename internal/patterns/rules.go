package patterns

import "github.com/fyrsmithlabs/actionitems/internal/task"

// Version identifies the built-in rule tables.
const Version = "2025.11"

// capture grabs the task body that follows a trigger phrase.
const capture = `(.{5,150})`

// DefaultRules returns the built-in task-detection rules in evaluation order.
// Every rule is tried against every eligible segment. Within a priority band
// more specific rules come first so they win representative ties.
func DefaultRules() []Rule {
	return []Rule{
		// High priority: obligations, requests and explicit assignments.
		{ID: "need_to", Pattern: `\b(?:need|needs) to\s+` + capture, Priority: task.PriorityHigh, Type: task.TypeExplicit},
		{ID: "must", Pattern: `\b(?:have to|has to|must|got to|gotta)\s+` + capture, Priority: task.PriorityHigh, Type: task.TypeExplicit},
		{ID: "critical_to", Pattern: `\b(?:critical|crucial|essential|vital) (?:to|that)\s+` + capture, Priority: task.PriorityHigh, Type: task.TypeExplicit},
		{ID: "urgent", Pattern: `\b(?:urgent|urgently|asap|as soon as possible)\b.*?` + capture, Priority: task.PriorityHigh, Type: task.TypeUrgent},
		{ID: "immediately", Pattern: `\b(?:immediately|right away)\b.*?` + capture, Priority: task.PriorityHigh, Type: task.TypeUrgent},
		{ID: "responsible_for", Pattern: `\b(?:responsible for|in charge of|accountable for)\s+` + capture, Priority: task.PriorityHigh, Type: task.TypeAssignment},
		{ID: "your_responsibility", Pattern: `\b(?:your|his|her|their) (?:responsibility|job|task) (?:is|will be) to\s+` + capture, Priority: task.PriorityHigh, Type: task.TypeAssignment},
		{ID: "request", Pattern: `\b(?:please|can you|could you|would you|will you)\s+` + capture, Priority: task.PriorityHigh, Type: task.TypeRequest},
		{ID: "make_sure", Pattern: `\b(?:make sure|ensure)(?: that)?\s+` + capture, Priority: task.PriorityHigh, Type: task.TypeExplicit},

		// Medium priority: commitments and concrete work verbs.
		{ID: "self_commitment", Pattern: `\b(?:I'll|I will|I'm going to|I am going to|I can|I should)\s+` + capture, Priority: task.PriorityMedium, Type: task.TypeSelfCommitment},
		{ID: "commitment", Pattern: `\b(?:will|'ll|shall)\s+` + capture, Priority: task.PriorityMedium, Type: task.TypeCommitment},
		{ID: "going_to", Pattern: `\b(?:going to|gonna)\s+` + capture, Priority: task.PriorityMedium, Type: task.TypeCommitment},
		{ID: "should", Pattern: `\b(?:should|ought to)\s+` + capture, Priority: task.PriorityMedium, Type: task.TypeExplicit},
		{ID: "plan_to", Pattern: `\b(?:plan to|planning to|intend to|aim to)\s+` + capture, Priority: task.PriorityMedium, Type: task.TypeCommitment},
		{ID: "lets", Pattern: `\blet'?s\s+` + capture, Priority: task.PriorityMedium, Type: task.TypeCollaborative},
		{ID: "we_need", Pattern: `\bwe (?:need to|have to|must)\s+` + capture, Priority: task.PriorityMedium, Type: task.TypeCollaborative},
		{ID: "team_needs", Pattern: `\b(?:the team|everyone|everybody) (?:needs to|should|must)\s+` + capture, Priority: task.PriorityMedium, Type: task.TypeCollaborative},
		{ID: "follow_up", Pattern: `\bfollow(?: |-)?up (?:on|with)\s+` + capture, Priority: task.PriorityMedium, Type: task.TypeFollowUp},
		{ID: "get_back", Pattern: `\bget back to\s+` + capture, Priority: task.PriorityMedium, Type: task.TypeFollowUp},
		{ID: "check_in", Pattern: `\bcheck in (?:with|on)\s+` + capture, Priority: task.PriorityMedium, Type: task.TypeFollowUp},
		{ID: "document", Pattern: `\b(?:document|write up|write down|note down)\s+` + capture, Priority: task.PriorityMedium, Type: task.TypeDocumentation},
		{ID: "update", Pattern: `\bupdate\s+` + capture, Priority: task.PriorityMedium, Type: task.TypeUpdate},
		{ID: "create", Pattern: `\b(?:create|build|develop|implement|set up)\s+` + capture, Priority: task.PriorityMedium, Type: task.TypeCreation},
		{ID: "draft", Pattern: `\b(?:draft|prepare|put together|compile)\s+` + capture, Priority: task.PriorityMedium, Type: task.TypeCreation},
		{ID: "send", Pattern: `\b(?:send|email|forward|share)\s+` + capture, Priority: task.PriorityMedium, Type: task.TypeCommunication},
		{ID: "reach_out", Pattern: `\b(?:reach out to|contact|ping)\s+` + capture, Priority: task.PriorityMedium, Type: task.TypeCommunication},
		{ID: "schedule", Pattern: `\b(?:schedule|book|arrange)\s+` + capture, Priority: task.PriorityMedium, Type: task.TypeScheduling},
		{ID: "review", Pattern: `\b(?:review|check|look into|look at|go over|go through)\s+` + capture, Priority: task.PriorityMedium, Type: task.TypeReview},
		{ID: "analyze", Pattern: `\b(?:analy[sz]e|investigate|research|evaluate|assess)\s+` + capture, Priority: task.PriorityMedium, Type: task.TypeAnalysis},
		{ID: "test", Pattern: `\b(?:test|verify|validate)\s+` + capture, Priority: task.PriorityMedium, Type: task.TypeTesting},
		{ID: "deliver", Pattern: `\b(?:deliver|submit|provide|present|ship)\s+` + capture, Priority: task.PriorityMedium, Type: task.TypeDelivery},
		{ID: "finish", Pattern: `\b(?:finish|complete|wrap up|finali[sz]e|close out)\s+` + capture, Priority: task.PriorityMedium, Type: task.TypeCompletion},
		{ID: "own", Pattern: `\b(?:own|lead|take ownership of|take care of|handle)\s+` + capture, Priority: task.PriorityMedium, Type: task.TypeOwnership},
		{ID: "manage", Pattern: `\b(?:manage|coordinate|organi[sz]e|oversee)\s+` + capture, Priority: task.PriorityMedium, Type: task.TypeManagement},

		// Low priority: hedged suggestions, offers and conditionals.
		{ID: "maybe", Pattern: `\b(?:could|might|may|perhaps|maybe)\s+` + capture, Priority: task.PriorityLow, Type: task.TypeSuggestion},
		{ID: "consider", Pattern: `\b(?:consider|think about)\s+` + capture, Priority: task.PriorityLow, Type: task.TypeSuggestion},
		{ID: "would_be_good", Pattern: `\b(?:would be (?:good|nice|great) to|it'd be (?:good|nice|great) to)\s+` + capture, Priority: task.PriorityLow, Type: task.TypeSuggestion},
		{ID: "can_help", Pattern: `\b(?:can help|happy to help|can assist)(?: with)?\s+` + capture, Priority: task.PriorityLow, Type: task.TypeOffer},
		{ID: "if_needed", Pattern: `\b(?:if needed|if necessary|if required|if possible)\b.*?` + capture, Priority: task.PriorityLow, Type: task.TypeConditional},
	}
}

// DefaultUrgencyRules returns keyword boosts. The largest matching boost wins.
func DefaultUrgencyRules() []UrgencyRule {
	return []UrgencyRule{
		{ID: "asap", Pattern: `\b(?:asap|as soon as possible)\b`, Boost: 1.5},
		{ID: "urgent", Pattern: `\b(?:urgent|urgently|immediate|immediately)\b`, Boost: 1.4},
		{ID: "right_now", Pattern: `\b(?:right now|right away|top priority|highest priority)\b`, Boost: 1.3},
		{ID: "time_sensitive", Pattern: `\b(?:time[- ]sensitive|time[- ]critical|critical|by (?:today|tonight|tomorrow))\b`, Boost: 1.2},
		{ID: "end_of_period", Pattern: `\b(?:by (?:the )?end of (?:the )?(?:day|week)|eod|important)\b`, Boost: 1.1},
	}
}

// requestMarker exempts polite requests from the question exclusion.
const requestMarker = `\b(?:can|could|would|will) you\b|\bplease\b`

// DefaultExclusions returns filters applied before pattern matching.
func DefaultExclusions() []ExclusionRule {
	return []ExclusionRule{
		{ID: "greeting", Pattern: `^(?:hi|hey|hello|howdy|good (?:morning|afternoon|evening))\b`},
		{ID: "farewell", Pattern: `^(?:bye|goodbye|see you|talk (?:to you )?(?:soon|later)|have a (?:good|great|nice) (?:day|weekend|one))\b`},
		{ID: "thanks", Pattern: `^(?:thanks|thank you|cheers|much appreciated)\b`},
		{ID: "acknowledgement", Pattern: `^(?:yes|yeah|yep|yup|no|nope|okay|ok|sure|right|alright|got it|great|perfect|awesome|sounds good|cool|exactly|agreed|absolutely|definitely|makes sense|of course)[\s.,!]*$`},
		{ID: "question", Pattern: `\?\s*$`, Unless: requestMarker},
	}
}

// taskWords rescue very short utterances from the fragment filter.
const taskWords = `\b(?:will|should|need|must|task)\b`
