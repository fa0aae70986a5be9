package routes

import (
	"testing"

	"github.com/oabuhamdan/event-coordinator/services"
)

func TestParseNoticeInput(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{name: "empty body defaults to reminder", body: "", want: services.NoticeReminder},
		{name: "whitespace body defaults to reminder", body: "  \n", want: services.NoticeReminder},
		{name: "empty object defaults to reminder", body: "{}", want: services.NoticeReminder},
		{name: "empty notice defaults to reminder", body: `{"notice": ""}`, want: services.NoticeReminder},
		{name: "explicit creation", body: `{"notice": "creation"}`, want: services.NoticeCreation},
		{name: "explicit deletion", body: `{"notice": "deletion"}`, want: services.NoticeDeletion},
		{name: "explicit reminder", body: `{"notice": "reminder"}`, want: services.NoticeReminder},
		{name: "unknown notice", body: `{"notice": "nudge"}`, wantErr: true},
		{name: "malformed json", body: "{not json", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseNoticeInput([]byte(tc.body))
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got notice %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("expected notice %q, got %q", tc.want, got)
			}
		})
	}
}
