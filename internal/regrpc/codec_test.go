package regrpc

import "testing"

func TestGobCodecRoundTrip(t *testing.T) {
	c := gobCodec{}

	in := &ComMsg{
		RegItem: []RegItemProto{{Name: "owner", Location: "channel"}},
		Fltr:    FilterProto{Definition: "owner"},
	}

	data, err := c.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var out ComMsg
	if err := c.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if len(out.RegItem) != 1 || out.RegItem[0] != in.RegItem[0] {
		t.Errorf("expected RegItem to round-trip, got %+v", out.RegItem)
	}
	if out.Fltr != in.Fltr {
		t.Errorf("expected Fltr to round-trip, got %+v", out.Fltr)
	}
}

func TestGobCodecName(t *testing.T) {
	if (gobCodec{}).Name() != "gob" {
		t.Errorf("expected codec name %q, got %q", "gob", (gobCodec{}).Name())
	}
}
