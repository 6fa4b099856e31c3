package chatbot

import (
	"testing"

	"gorm.io/datatypes"
)

func TestRoleOrDefault(t *testing.T) {
	cases := map[Role]Role{
		RoleStudent:    RoleStudent,
		RoleInstructor: RoleInstructor,
		RoleAdmin:      RoleAdmin,
		"":             RoleStudent,
		"guest":        RoleStudent,
	}
	for in, want := range cases {
		if got := in.OrDefault(); got != want {
			t.Fatalf("Role(%q).OrDefault() = %q, want %q", in, got, want)
		}
	}
}

func TestContextMapRoundTrip(t *testing.T) {
	raw, err := EncodeContext(map[string]any{"courseId": "C1"})
	if err != nil {
		t.Fatalf("EncodeContext: %v", err)
	}
	c := &Conversation{Context: raw}
	if got := c.ContextMap()["courseId"]; got != "C1" {
		t.Fatalf("courseId = %v, want C1", got)
	}

	corrupt := &Conversation{Context: datatypes.JSON("{not json")}
	if m := corrupt.ContextMap(); len(m) != 0 {
		t.Fatalf("corrupt context should decode to empty map, got %v", m)
	}
}
