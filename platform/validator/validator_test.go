package validator

import "testing"

func TestIsLinkedInURL(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"https://www.linkedin.com/in/jane-doe", true},
		{"https://linkedin.com/company/acme/", true},
		{"http://in.linkedin.com/in/ravi", true},
		{"https://linkedin.com/feed/", false},
		{"https://example.com/in/jane", false},
		{"linkedin.com/in/jane", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsLinkedInURL(tc.in); got != tc.want {
			t.Errorf("IsLinkedInURL(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestIsContact(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"jane@acme.io", true},
		{"+44 20 7946 0958", true},
		{"Jane <jane@acme.io>", false},
		{"not-an-email@", false},
		{"call me maybe", false},
		{"  ", false},
	}
	for _, tc := range cases {
		if got := IsContact(tc.in); got != tc.want {
			t.Errorf("IsContact(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestStructUsesRegisteredRules(t *testing.T) {
	type input struct {
		Contact    string `validate:"required,contact"`
		ProfileURL string `validate:"omitempty,linkedinurl"`
	}

	v := New()
	if err := v.Struct(input{Contact: "jane@acme.io", ProfileURL: "https://linkedin.com/in/jane"}); err != nil {
		t.Fatalf("expected valid input, got %v", err)
	}
	if err := v.Struct(input{Contact: "jane@acme.io", ProfileURL: "https://twitter.com/jane"}); err == nil {
		t.Fatal("expected profile url to be rejected")
	}
	if err := v.Struct(input{Contact: "nope"}); err == nil {
		t.Fatal("expected contact to be rejected")
	}
}
