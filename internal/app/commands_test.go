package app

import (
	"reflect"
	"testing"
	"time"

	"github.com/quipcam/quipcam/internal/apperr"
)

func TestParse(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"", nil},
		{"/camera", CaptureImage{Source: "camera"}},
		{"/screen", CaptureImage{Source: "screen"}},
		{"/paste", CaptureImage{Source: "clipboard"}},
		{"/upload  my photos/cat.png", UploadFile{Path: "my photos/cat.png"}},
		{"/record", StartRecording{}},
		{"/record 3s", RecordFor{Duration: 3 * time.Second}},
		{"/stop", StopRecording{}},
		{"/GENERATE", Generate{}},
		{"/login a@b.c", Login{Email: "a@b.c"}},
		{"/signup ann a@b.c", Signup{Username: "ann", Email: "a@b.c"}},
		{"/verify tok", Verify{Token: "tok"}},
		{"/resend a@b.c", ResendVerification{Email: "a@b.c"}},
		{"/profile", ShowProfile{}},
		{"/profile set username=bob age=7 public=true", UpdateProfile{Fields: map[string]any{
			"username": "bob", "age": int64(7), "public": true,
		}}},
		{"/status", ShowStatus{}},
		{"/logout", Logout{}},
		{"/help", showHelp{}},
		{"/quit", quit{}},
	}
	for _, tt := range tests {
		got, err := Parse(tt.line)
		if err != nil {
			t.Errorf("Parse(%q) error: %v", tt.line, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Parse(%q) = %#v, want %#v", tt.line, got, tt.want)
		}
	}
}

func TestParse_Errors(t *testing.T) {
	for _, line := range []string{
		"hello",
		"/unknown",
		"/upload",
		"/login",
		"/signup ann",
		"/record soon",
		"/profile set",
		"/profile set novalue",
	} {
		if _, err := Parse(line); !apperr.IsValidation(err) {
			t.Errorf("Parse(%q): expected validation error, got %v", line, err)
		}
	}
}
