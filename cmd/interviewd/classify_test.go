package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestClassifyCommand(t *testing.T) {
	var out bytes.Buffer
	classifyCmd.SetOut(&out)
	defer classifyCmd.SetOut(nil)

	if err := runClassify(classifyCmd, []string{"yes,", "I'm", "ready"}); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); !strings.HasPrefix(got, "CONSENT") || !strings.Contains(got, "(interview starts)") {
		t.Errorf("output = %q", got)
	}

	out.Reset()
	if err := runClassify(classifyCmd, []string{"what is a hash map?"}); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "KNOWLEDGE_QUESTION") {
		t.Errorf("output = %q", out.String())
	}
}
