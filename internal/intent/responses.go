package intent

var responses = map[Label]string{
	Greeting:          "Hello! Good to meet you. Whenever you're ready to begin, just say so.",
	Introduction:      "Nice to meet you. When you're ready for the first question, let me know.",
	TimeRequest:       "Of course, take your time. Tell me when you're ready to start.",
	KnowledgeQuestion: "That's a good question, and we may get to topics like that. For now, let me know when you're ready to begin.",
	Control:           "We haven't started yet. Say you're ready whenever you'd like to begin.",
	Decline:           "No problem. I'll wait until you're ready.",
	GeneralMessage:    "Thanks. Are you ready to start the interview?",
}

// Response returns the scripted interviewer reply for label. Consent has no
// reply of its own: it starts the interview.
func Response(label Label) (string, bool) {
	r, ok := responses[label]
	return r, ok
}
