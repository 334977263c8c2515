package irtrack

import "testing"

func TestMailboxToolsLastWriteWins(t *testing.T) {
	m := NewOutputMailbox()

	if _, ok := m.TakeTools(); ok {
		t.Fatal("empty mailbox should not return a snapshot")
	}
	if m.ToolsUpdated() {
		t.Fatal("empty mailbox should not report an update")
	}

	m.PublishTools([]float64{1})
	m.PublishTools([]float64{2})

	got, ok := m.TakeTools()
	if !ok {
		t.Fatal("expected a snapshot after publish")
	}
	if len(got) != 1 || got[0] != 2 {
		t.Errorf("snapshot = %v, want the second publish only", got)
	}
}

func TestMailboxTakeClearsFlagButKeepsValue(t *testing.T) {
	m := NewOutputMailbox()
	m.PublishTools([]float64{1, 2, 3})

	if !m.ToolsUpdated() {
		t.Fatal("publish should set the updated flag")
	}

	first, ok := m.TakeTools()
	if !ok {
		t.Fatal("expected a snapshot")
	}
	if m.ToolsUpdated() {
		t.Error("take should clear the updated flag")
	}

	// a second take still returns the stale value, just not marked fresh
	second, ok := m.TakeTools()
	if !ok {
		t.Fatal("stale snapshot should still be readable")
	}
	if len(second) != len(first) {
		t.Errorf("stale snapshot = %v, want %v", second, first)
	}
}

func TestMailboxTakeReturnsCopy(t *testing.T) {
	m := NewOutputMailbox()
	m.PublishTools([]float64{5})

	got, _ := m.TakeTools()
	got[0] = 99

	again, _ := m.TakeTools()
	if again[0] != 5 {
		t.Error("mutating a taken snapshot must not affect the mailbox")
	}
}

func TestMailboxPeekKeepsFlag(t *testing.T) {
	m := NewOutputMailbox()
	m.PublishTools([]float64{7})

	if _, ok := m.PeekTools(); !ok {
		t.Fatal("peek should see the published snapshot")
	}
	if !m.ToolsUpdated() {
		t.Error("peek must not clear the updated flag")
	}
}

func TestMailboxDisplayImages(t *testing.T) {
	m := NewOutputMailbox()

	if _, ok := m.TakeABDisplay(); ok {
		t.Fatal("empty mailbox should not return a display image")
	}

	ab := NewImage8(4, 4)
	ab.Pix[0] = 200
	depth := NewImage8(4, 4)
	m.PublishDisplayImages(ab, depth)

	abOK, depthOK := m.DisplayImagesUpdated()
	if !abOK || !depthOK {
		t.Fatal("publish should mark both display slots fresh")
	}

	got, ok := m.TakeABDisplay()
	if !ok || got.Pix[0] != 200 {
		t.Errorf("AB display = %v, %v", got, ok)
	}

	abOK, depthOK = m.DisplayImagesUpdated()
	if abOK {
		t.Error("taking the AB image should clear only its flag")
	}
	if !depthOK {
		t.Error("depth flag should survive an AB take")
	}
}

func TestMailboxRawImages(t *testing.T) {
	m := NewOutputMailbox()

	ab := NewImage16(2, 2)
	ab.Pix[3] = 4000
	depth := NewImage16(2, 2)
	depth.Pix[0] = 1500
	m.PublishRawImages(ab, depth)

	gotAB, ok := m.TakeRawAB()
	if !ok || gotAB.Pix[3] != 4000 {
		t.Errorf("raw AB = %v, %v", gotAB, ok)
	}
	gotDepth, ok := m.TakeRawDepth()
	if !ok || gotDepth.Pix[0] != 1500 {
		t.Errorf("raw depth = %v, %v", gotDepth, ok)
	}

	// copies, not aliases
	gotAB.Pix[3] = 0
	again, _ := m.TakeRawAB()
	if again.Pix[3] != 4000 {
		t.Error("raw image take must return a copy")
	}
}
