package model

import (
	"encoding/json"
	"math"
	"testing"
)

func TestValuesMarshalNulls(t *testing.T) {
	v := Values{1.5, math.NaN(), math.Inf(1), 2}
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got, want := string(data), "[1.5,null,null,2]"; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestValuesUnmarshalNullsAsAbsent(t *testing.T) {
	var v Values
	if err := json.Unmarshal([]byte("[3,null,4]"), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(v) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(v))
	}
	if v[0] != 3 || v[2] != 4 {
		t.Errorf("unexpected values: %v", v)
	}
	if Finite(v[1]) {
		t.Errorf("expected absent middle slot, got %v", v[1])
	}
}

func TestForecastModelValid(t *testing.T) {
	if !ForecastGRU.Valid() {
		t.Error("gru should be valid")
	}
	if ForecastModel("arima").Valid() {
		t.Error("arima should not be valid")
	}
	if ForecastLSTM.Label() != "LSTM" {
		t.Errorf("unexpected label %q", ForecastLSTM.Label())
	}
}
