package sanitize

import (
	"reflect"
	"testing"
)

func TestText(t *testing.T) {
	got := Text("  <b>Call</b>   back \t&lt;script&gt;alert(1)&lt;/script&gt; ")
	if got != "Call back alert(1)" {
		t.Fatalf("unexpected sanitized text %q", got)
	}
}

func TestTextPtrNil(t *testing.T) {
	if TextPtr(nil) != nil {
		t.Fatal("expected nil for nil input")
	}
}

func TestTagsDeduplicates(t *testing.T) {
	got := Tags([]string{"SaaS", " saas ", "", "<i>fintech</i>", "Fintech"})
	want := []string{"SaaS", "fintech"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tags = %v, want %v", got, want)
	}
}
