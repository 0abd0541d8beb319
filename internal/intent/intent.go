// Package intent labels what the candidate says before the interview proper
// starts, using fixed phrase lists and a fixed evaluation order.
package intent

import (
	"strings"
	"unicode"
)

// Label is the classified intent of a pre-interview utterance.
type Label string

const (
	Greeting          Label = "GREETING"
	Introduction      Label = "INTRODUCTION"
	TimeRequest       Label = "TIME_REQUEST"
	KnowledgeQuestion Label = "KNOWLEDGE_QUESTION"
	Control           Label = "CONTROL"
	Consent           Label = "CONSENT"
	Decline           Label = "DECLINE"
	GeneralMessage    Label = "GENERAL_MESSAGE"
)

// MaxGreetingTokens bounds how long an utterance may be and still count as a greeting.
const MaxGreetingTokens = 5

var (
	greetingPhrases = phrases("hi", "hello", "hey", "hiya", "howdy", "greetings",
		"good morning", "good afternoon", "good evening")

	introductionPhrases = phrases("my name is", "my name's", "i'm called", "i am called",
		"call me", "myself is")

	timeRequestPhrases = phrases("give me a moment", "give me a minute", "give me a second",
		"give me a sec", "one moment", "one minute", "one second", "one sec", "just a moment",
		"just a minute", "just a second", "hold on", "hang on", "need a moment", "need a minute",
		"need some time", "need more time", "let me think", "wait a moment", "wait a minute",
		"not yet")

	questionStems = phrases("what is", "what's", "what are", "what does", "how do", "how does",
		"how is", "how to", "why", "when should", "can you explain", "could you explain",
		"explain", "tell me about", "define", "difference between", "is it")

	controlPhrases = phrases("pause", "skip", "stop", "end the interview", "end interview",
		"quit", "exit", "repeat the question", "repeat that")

	consentPhrases = phrases("yes", "yeah", "yep", "yup", "sure", "ready", "i'm ready",
		"let's start", "let's begin", "let's go", "go ahead", "okay", "ok", "absolutely",
		"of course", "sounds good", "alright", "all right", "start", "begin", "proceed")

	// Anything containing "ready" is consent, so "not ready" is not listed.
	declinePhrases = phrases("no", "nope", "nah", "don't", "do not", "later",
		"not now", "cancel", "never mind")
)

// rule is one entry in the fixed-priority evaluation order.
type rule struct {
	label Label
	match func(u utterance) bool
}

// rules is evaluated top to bottom; the first match wins. Consent is checked
// before Decline on purpose so "no problem, I'm ready" starts the interview.
var rules = []rule{
	{Greeting, func(u utterance) bool {
		return len(u.tokens) <= MaxGreetingTokens && u.containsAny(greetingPhrases)
	}},
	{Introduction, func(u utterance) bool { return u.containsAny(introductionPhrases) }},
	{TimeRequest, func(u utterance) bool { return u.containsAny(timeRequestPhrases) }},
	{KnowledgeQuestion, func(u utterance) bool { return u.question && u.containsAny(questionStems) }},
	{Control, func(u utterance) bool { return u.containsAny(controlPhrases) }},
	{Consent, func(u utterance) bool { return u.containsAny(consentPhrases) }},
	{Decline, func(u utterance) bool { return u.containsAny(declinePhrases) }},
}

// Classify labels text. It is pure and safe for concurrent use.
func Classify(text string) Label {
	u := parse(text)
	if len(u.tokens) == 0 {
		return GeneralMessage
	}
	for _, r := range rules {
		if r.match(u) {
			return r.label
		}
	}
	return GeneralMessage
}

type utterance struct {
	tokens   []string
	question bool
}

func parse(text string) utterance {
	normalized := strings.NewReplacer("’", "'", "‘", "'").Replace(strings.ToLower(text))
	return utterance{tokens: tokenize(normalized), question: strings.Contains(normalized, "?")}
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func phrases(list ...string) [][]string {
	out := make([][]string, len(list))
	for i, p := range list {
		out[i] = tokenize(p)
	}
	return out
}

// containsAny reports whether any phrase occurs as a contiguous run of whole tokens.
func (u utterance) containsAny(list [][]string) bool {
	for _, p := range list {
		if containsRun(u.tokens, p) {
			return true
		}
	}
	return false
}

func containsRun(tokens, phrase []string) bool {
	if len(phrase) == 0 || len(phrase) > len(tokens) {
		return false
	}
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		match := true
		for j, p := range phrase {
			if tokens[i+j] != p {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
