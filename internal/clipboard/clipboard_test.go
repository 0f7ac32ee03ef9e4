package clipboard

import "testing"

func TestMemory(t *testing.T) {
	var m Memory

	if got, _ := m.ReadText(); got != "" {
		t.Errorf("ReadText() = %q, want empty", got)
	}
	if err := m.WriteText("hello world"); err != nil {
		t.Fatalf("WriteText() failed: %v", err)
	}
	if got, _ := m.ReadText(); got != "hello world" {
		t.Errorf("ReadText() = %q, want hello world", got)
	}
}

func TestNew_AlwaysUsable(t *testing.T) {
	if New() == nil {
		t.Fatal("New() returned nil")
	}
}
