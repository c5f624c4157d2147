package models

import (
	"reflect"
	"testing"
)

func TestLedgerEventParties(t *testing.T) {
	tests := []struct {
		name  string
		event LedgerEvent
		want  []string
	}{
		{
			name:  "secondary trade reaches both sides",
			event: LedgerEvent{Type: EventTransferSingle, Holder: "carol", Payload: []byte(`{"from":"bob","to":"carol"}`)},
			want:  []string{"carol", "bob"},
		},
		{
			name:  "mint has no sender",
			event: LedgerEvent{Type: EventTransferSingle, Holder: "alice", Payload: []byte(`{"from":"","to":"alice"}`)},
			want:  []string{"alice"},
		},
		{
			name:  "batch claim",
			event: LedgerEvent{Type: EventTransferBatch, Holder: "alice", Payload: []byte(`{"to":"alice"}`)},
			want:  []string{"alice"},
		},
		{
			name:  "other events only name the holder",
			event: LedgerEvent{Type: EventVoted, Holder: "bob", Payload: []byte(`{"from":"x"}`)},
			want:  []string{"bob"},
		},
		{
			name:  "settings event",
			event: LedgerEvent{Type: EventPausedStatus, Payload: []byte(`{}`)},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.event.Parties()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parties() = %v, want %v", got, tt.want)
			}
		})
	}

	trade := tests[0].event
	if !trade.Involves("bob") || trade.Involves("dave") {
		t.Errorf("Involves mismatch for %v", trade.Parties())
	}
}
