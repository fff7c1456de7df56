package canonical

import "testing"

func TestKey_Scenario(t *testing.T) {
	got := Key("How do I calibrate the CAM?", "mozaik", "")
	if got != "mozaik:generic:how-do-i-calibrate-the-cam" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestKey_EquivalentPhrasings(t *testing.T) {
	variants := []struct {
		question string
		platform string
		version  string
	}{
		{"How do I calibrate the CAM?", "Mozaik", "  "},
		{"how do i calibrate the cam", "mozaik", ""},
		{"  HOW  do I calibrate\tthe CAM!!! ", "MOZAIK", ""},
		{"How do I (calibrate) the 'CAM'?", "mozaik ", ""},
		{"How-do-I calibrate -- the CAM", "mozaik", ""},
	}
	want := Key(variants[0].question, variants[0].platform, variants[0].version)
	for _, v := range variants {
		if got := Key(v.question, v.platform, v.version); got != want {
			t.Fatalf("expected %q for %+v, got %q", want, v, got)
		}
	}
}

func TestKey_Idempotent(t *testing.T) {
	inputs := [][3]string{
		{"How do I calibrate the CAM?", "mozaik", ""},
		{"Export cut list", "Cabinet Vision", "v2024.1"},
		{"日本語の質問", "mozaik", "日本"},
		{"", "", ""},
	}
	for _, in := range inputs {
		key := Key(in[0], in[1], in[2])
		platform, version, question, ok := Parse(key)
		if !ok {
			t.Fatalf("parse %q failed", key)
		}
		if again := Key(question, platform, version); again != key {
			t.Fatalf("expected idempotent key %q, got %q", key, again)
		}
	}
}

func TestSlug(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Crème brûlée", "creme-brulee"},
		{"don't stop", "dont-stop"},
		{"v2024.1", "v20241"},
		{"--leading and trailing--", "leading-and-trailing"},
		{"a_b*c+d~e@f", "abcdef"},
		{"日本語", ""},
		{"Multiple   spaces\nand\ttabs", "multiple-spaces-and-tabs"},
	}
	for _, tc := range cases {
		if got := Slug(tc.in); got != tc.want {
			t.Fatalf("Slug(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestVersionSlug_FallsBackToGeneric(t *testing.T) {
	if got := VersionSlug("日本"); got != GenericPart {
		t.Fatalf("expected generic, got %q", got)
	}
	if got := VersionSlug("12.3"); got != "123" {
		t.Fatalf("expected 123, got %q", got)
	}
}

func TestPublicPath(t *testing.T) {
	got := PublicPath("How do I calibrate the CAM?", "Mozaik", "")
	if got != "mozaik/generic/how-do-i-calibrate-the-cam" {
		t.Fatalf("unexpected path %q", got)
	}
}
