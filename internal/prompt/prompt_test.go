package prompt

import (
	"strings"
	"testing"
)

func TestComposeDeterministic(t *testing.T) {
	first := Compose(SystemMessage, "Product Name: Classic Tee", "do you have a blue shirt")
	second := Compose(SystemMessage, "Product Name: Classic Tee", "do you have a blue shirt")

	if first != second {
		t.Errorf("Compose is not deterministic:\nfirst:  %q\nsecond: %q", first, second)
	}
}

func TestComposeContainsContextVerbatim(t *testing.T) {
	contextBlock := "Product Name: Classic Tee\nBrand: Acme\nPrice: 19.99\nColor: Blue\nDescription: soft cotton t-shirt"

	got := Compose("", contextBlock, "do you have a blue shirt")

	if !strings.Contains(got, contextBlock) {
		t.Errorf("composed prompt does not contain the context block verbatim:\n%s", got)
	}
	if !strings.Contains(got, "Query: do you have a blue shirt") {
		t.Errorf("composed prompt does not contain the literal query:\n%s", got)
	}
	if !strings.HasSuffix(got, "Answer:") {
		t.Errorf("composed prompt does not end with the answer trailer:\n%s", got)
	}
}

func TestComposeFormat(t *testing.T) {
	got := Compose("", "ctx", "q")
	want := "Query: q\n\nContext:\nctx\n\nAnswer:"
	if got != want {
		t.Errorf("Compose(\"\", \"ctx\", \"q\") = %q, want %q", got, want)
	}
}

func TestComposeWithSystemMessage(t *testing.T) {
	got := Compose("Be brief.", "ctx", "q")

	if !strings.HasPrefix(got, "Be brief.\n\n") {
		t.Errorf("system message should lead the prompt, got %q", got)
	}
	if !strings.Contains(got, "Query: q") {
		t.Errorf("query missing from prompt: %q", got)
	}
}

func TestSystemMessagePolicy(t *testing.T) {
	// The persona must state the out-of-domain reply and the honesty policy;
	// downstream behavior tests rely on both being present.
	for _, phrase := range []string{
		"I can only provide answers related to the store only.",
		"don't have information",
	} {
		if !strings.Contains(SystemMessage, phrase) {
			t.Errorf("SystemMessage is missing required policy phrase %q", phrase)
		}
	}
}
