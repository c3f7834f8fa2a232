package nats

import (
	"encoding/json"
	"fmt"

	"github.com/jaredthomas68/HOPP/pkg/model"
)

// Subject constants
const (
	SubjectSimWindows = "hopp.sim.windows"
	SubjectSimResults = "hopp.sim.results"
)

// Subjects lists every subject of the stream
var Subjects = []string{SubjectSimWindows, SubjectSimResults}

// SimWindowMsg asks an external simulator to run one exemplar window
type SimWindowMsg struct {
	RunID        string                 `json:"run_id"`
	Window       model.SimulationWindow `json:"window"`
	NDays        int                    `json:"ndays"`         // production days to report back
	LookbackDays int                    `json:"lookback_days"` // leading days to discard from the output
	Weight       float64                `json:"weight"`        // share of the year the cluster stands for
	BatterySOC   float64                `json:"battery_soc"`
	CSP          model.InitialState     `json:"csp"`
}

// MsgID identifies the job of one cluster of a run
func (m SimWindowMsg) MsgID() string {
	return fmt.Sprintf("%s/window/%d", m.RunID, m.Window.ClusterID)
}

// SimResultMsg carries simulator output for the production days of one
// exemplar
type SimResultMsg struct {
	RunID     string    `json:"run_id"`
	ClusterID int       `json:"cluster_id"`
	Name      string    `json:"name"` // output variable, e.g. "gen"
	Values    []float64 `json:"values"`
}

// MsgID identifies one output of one cluster of a run
func (m SimResultMsg) MsgID() string {
	return fmt.Sprintf("%s/result/%d/%s", m.RunID, m.ClusterID, m.Name)
}

// Validate checks that the result covers the expected number of steps
func (m *SimResultMsg) Validate(ndays, stepsPerHour int) error {
	want := ndays * model.HoursPerDay * stepsPerHour
	if len(m.Values) != want {
		return fmt.Errorf("cluster %d result has %d values, want %d", m.ClusterID, len(m.Values), want)
	}
	return nil
}

// Encode serializes a message to JSON bytes
func Encode(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// DecodeSimWindow deserializes a SimWindowMsg from JSON bytes
func DecodeSimWindow(data []byte) (*SimWindowMsg, error) {
	var msg SimWindowMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// DecodeSimResult deserializes a SimResultMsg from JSON bytes
func DecodeSimResult(data []byte) (*SimResultMsg, error) {
	var msg SimResultMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.RunID == "" {
		return nil, fmt.Errorf("result without run id")
	}
	return &msg, nil
}
