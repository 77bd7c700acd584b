package gateway

import (
	"errors"
	"testing"
)

func TestParseInstrumentEvent(t *testing.T) {
	raw := []byte(`{
		"type":"ADD",
		"data":{"description":"elementum eos accumsan orci constituto antiopam","isin":"LS342I184454"}
	}`)
	ev, err := ParseInstrumentEvent(raw)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if ev.Type != InstrumentAdd || ev.Data.ISIN != "LS342I184454" {
		t.Fatalf("unexpected parse result: %+v", ev)
	}
	if ev.Data.Description == "" {
		t.Fatalf("description not decoded")
	}
}

func TestParseQuoteEvent(t *testing.T) {
	raw := []byte(`{"type":"QUOTE","data":{"price":1017.8739,"isin":"LS342I184454"}}`)
	ev, err := ParseQuoteEvent(raw)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if ev.Data.ISIN != "LS342I184454" || ev.Data.Price != 1017.8739 {
		t.Fatalf("unexpected parse result: %+v", ev)
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := ParseQuoteEvent([]byte(`{not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := ParseInstrumentEvent([]byte(`{"type":"ADD","data":{}}`)); !errors.Is(err, ErrMissingISIN) {
		t.Fatalf("expected ErrMissingISIN, got %v", err)
	}
	if _, err := ParseQuoteEvent([]byte(`{"type":"QUOTE","data":{"price":1}}`)); !errors.Is(err, ErrMissingISIN) {
		t.Fatalf("expected ErrMissingISIN, got %v", err)
	}
}
