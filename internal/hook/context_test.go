package hook

import "testing"

func TestContext_Get(t *testing.T) {
	c := Context{"user": "ada", "count": 3, "ok": true}

	if v, ok := c.Get("user"); !ok || v != "ada" {
		t.Errorf("Get(user): expected ada, got %v (%v)", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing): expected absent")
	}
	if got := c.GetString("user"); got != "ada" {
		t.Errorf("GetString: expected ada, got %q", got)
	}
	if got := c.GetString("count"); got != "" {
		t.Errorf("GetString on int: expected empty, got %q", got)
	}
	if got := c.GetInt("count"); got != 3 {
		t.Errorf("GetInt: expected 3, got %d", got)
	}
	if got := c.GetInt("user"); got != 0 {
		t.Errorf("GetInt on string: expected 0, got %d", got)
	}
	if !c.GetBool("ok") {
		t.Error("GetBool: expected true")
	}
	if c.GetBool("missing") {
		t.Error("GetBool(missing): expected false")
	}
}

func TestContext_Clone(t *testing.T) {
	orig := Context{"a": 1}
	clone := orig.Clone()
	clone["a"] = 2
	clone["b"] = 3

	if orig.GetInt("a") != 1 {
		t.Error("mutating clone changed original")
	}
	if _, ok := orig.Get("b"); ok {
		t.Error("key added to clone appeared in original")
	}
}

func TestContext_Merge(t *testing.T) {
	base := Context{"a": 1, "b": 2}
	merged := base.Merge(Context{"b": 20, "c": 30})

	if merged.GetInt("a") != 1 || merged.GetInt("b") != 20 || merged.GetInt("c") != 30 {
		t.Errorf("unexpected merge result: %v", merged)
	}
	// Neither input is modified.
	if base.GetInt("b") != 2 {
		t.Error("merge modified the receiver")
	}
}

func TestContext_MergeEmpty(t *testing.T) {
	base := Context{"a": 1}
	if got := base.Merge(nil); got.GetInt("a") != 1 {
		t.Errorf("merge with nil partial lost fields: %v", got)
	}
	if got := base.Merge(Context{}); got.GetInt("a") != 1 {
		t.Errorf("merge with empty partial lost fields: %v", got)
	}
}
