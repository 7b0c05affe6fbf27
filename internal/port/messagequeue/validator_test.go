package messagequeue

import (
	"strings"
	"testing"
)

func TestValidateMemoryCreated(t *testing.T) {
	data := []byte(`{"memory_id":"m1","user_id":"u1","tag":"explicit","priority":2,"created_at":"2025-01-02T03:04:05Z"}`)
	if err := Validate(SubjectMemoryCreated, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateMemoryCreatedMissingIDs(t *testing.T) {
	data := []byte(`{"tag":"explicit"}`)
	err := Validate(SubjectMemoryCreated, data)
	if err == nil {
		t.Fatal("expected error for missing ids")
	}
	if !strings.Contains(err.Error(), "memory_id and user_id are required") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateChatTurn(t *testing.T) {
	data := []byte(`{"session_id":"s1","user_id":"u1","intent":"rag","degraded":true,"duration_ms":420}`)
	if err := Validate(SubjectChatTurn, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateWrongType(t *testing.T) {
	data := []byte(`{"session_id":"s1","duration_ms":"slow"}`)
	if err := Validate(SubjectChatTurn, data); err == nil {
		t.Fatal("expected schema error for string duration")
	}
}

func TestValidateInvalidJSON(t *testing.T) {
	err := Validate(SubjectMemoryCreated, []byte(`{not json`))
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if !strings.Contains(err.Error(), "invalid JSON") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateUnknownSubject(t *testing.T) {
	if err := Validate("other.subject", []byte(`{"anything":1}`)); err != nil {
		t.Fatalf("unknown subjects should pass, got %v", err)
	}
}
