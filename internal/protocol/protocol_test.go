package protocol

import (
	"encoding/json"
	"testing"
)

func TestDecodeBase(t *testing.T) {
	m, err := DecodeBase([]byte(`{"type":"chat","text":"hi"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Type != TypeChat {
		t.Fatalf("type = %q", m.Type)
	}
	if _, err := DecodeBase([]byte(`{broken`)); err == nil {
		t.Fatalf("malformed json decoded")
	}
}

func TestKnownErrorCodes(t *testing.T) {
	for _, code := range []string{
		ErrNoPermission, ErrAuthRequired, ErrUnclaimed, ErrBadRequest,
		ErrNoFunds, ErrDailyCap, ErrNotListed, ErrNotFound, ErrConflict,
		ErrWorldFull, ErrAlreadyDone,
	} {
		if !IsKnownCode(code) {
			t.Fatalf("%s not registered", code)
		}
	}
	if IsKnownCode("E_MADE_UP") {
		t.Fatalf("unregistered code accepted")
	}
	if !IsKnownCode("") {
		t.Fatalf("empty code should be allowed (code is optional)")
	}
}

func TestErrorMsgOmitsEmptyFields(t *testing.T) {
	b, err := json.Marshal(ErrorMsg{Type: TypeError, Error: "nope"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	if _, ok := m["code"]; ok {
		t.Fatalf("empty code serialized: %s", b)
	}
	if _, ok := m["hint"]; ok {
		t.Fatalf("empty hint serialized: %s", b)
	}
}
