package wallet

import (
	"errors"
	"testing"
)

func TestValidText(t *testing.T) {
	if err := ValidText("hello", "", "안녕"); err != nil {
		t.Errorf("Unexpected error for valid text: %v", err)
	}

	err := ValidText("ok", "\xff\xfe")
	if err == nil {
		t.Fatal("Expected error for invalid UTF-8")
	}
	if !errors.Is(err, ErrInvalidText) {
		t.Errorf("Expected ErrInvalidText, got %v", err)
	}
}

func TestValidWordList(t *testing.T) {
	if err := ValidWordList([]string{"abandon", "able"}); err != nil {
		t.Errorf("Unexpected error for valid words: %v", err)
	}
	if err := ValidWordList([]string{"ok", "\x80bad"}); !errors.Is(err, ErrInvalidText) {
		t.Errorf("Expected ErrInvalidText, got %v", err)
	}
}

func TestEngineErrorMessageVerbatim(t *testing.T) {
	err := &EngineError{Code: 404, Message: "not found"}
	if err.Error() != "not found" {
		t.Errorf("Expected message only, got %q", err.Error())
	}
}

func TestTransactionIDIsZero(t *testing.T) {
	var id TransactionID
	if !id.IsZero() {
		t.Error("Zero value should be zero")
	}
	if (TransactionID{LT: 1}).IsZero() {
		t.Error("Non-zero LT should not be zero")
	}
	if (TransactionID{Hash: []byte{1}}).IsZero() {
		t.Error("Non-empty hash should not be zero")
	}
}
