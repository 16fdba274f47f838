package persistence

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// StateVersion is the current version of the state file format.
const StateVersion = 1

// AgentState contains the runtime state for an edgetwin agent.
type AgentState struct {
	// Version is the state file format version.
	Version int `json:"version"`

	// SavedAt is when the state was last saved.
	SavedAt time.Time `json:"saved_at"`

	// DeviceID is the persisted device identity. Generated on first run
	// when the configuration does not pin one.
	DeviceID string `json:"device_id"`

	// MsgID is the next telemetry message identifier to assign.
	MsgID int `json:"msg_id,omitempty"`

	// BlinkIndex is the selected LED blink interval index.
	BlinkIndex int `json:"blink_index,omitempty"`

	// Reported contains the last reported value per twin property.
	Reported map[string]ReportedValue `json:"reported,omitempty"`
}

// ReportedValue captures the last value reported for one property.
type ReportedValue struct {
	// Kind is the value kind name (Integer, Float, Boolean, String).
	Kind string `json:"kind"`

	// Value is the serialized value as it appeared in the report.
	Value string `json:"value"`

	// ReportedAt is when the report was sent.
	ReportedAt time.Time `json:"reported_at"`
}

// StateStore manages persistence of agent state to a JSON file.
type StateStore struct {
	mu   sync.Mutex
	path string
}

// NewStateStore creates a new agent state store.
func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

// Path returns the state file location.
func (s *StateStore) Path() string {
	return s.path
}

// Save persists the agent state to disk. The file is written to a
// temporary name and renamed into place so a power cut cannot leave a
// half-written state file.
func (s *StateStore) Save(state *AgentState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	state.Version = StateVersion
	if state.SavedAt.IsZero() {
		state.SavedAt = time.Now()
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".agent-state-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// Load reads the agent state from disk.
// Returns nil, nil if the file doesn't exist (empty state).
func (s *StateStore) Load() (*AgentState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	state := &AgentState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, err
	}

	return state, nil
}

// Clear removes the state file.
func (s *StateStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
