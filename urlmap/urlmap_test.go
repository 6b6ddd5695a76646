package urlmap

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDecodeFlatList(t *testing.T) {
	tasks, err := Decode([]byte(`["https://a.example/", "https://b.example/", "https://a.example/"]`), 2)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("tasks = %d, want 2 (deduplicated)", len(tasks))
	}
	if tasks[0].URL != "https://a.example/" || tasks[0].Depth != 0 {
		t.Errorf("first task = %+v", tasks[0])
	}
}

func TestDecodeByDepth(t *testing.T) {
	data := []byte(`{"urls_by_depth": {
		"0": ["https://root.example/"],
		"1": ["https://child.example/", "https://root.example/"],
		"3": ["https://deep.example/"]
	}}`)
	tasks, err := Decode(data, 2)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("tasks = %d, want 2", len(tasks))
	}
	if tasks[0].URL != "https://root.example/" || tasks[0].Depth != 0 {
		t.Errorf("root task = %+v (shallowest depth must win)", tasks[0])
	}
	if tasks[1].URL != "https://child.example/" || tasks[1].Depth != 1 {
		t.Errorf("child task = %+v", tasks[1])
	}
	for _, task := range tasks {
		if task.URL == "https://deep.example/" {
			t.Error("URL beyond max depth included")
		}
	}
}

func TestDecodeURLKeyedObject(t *testing.T) {
	data := []byte(`{"https://b.example/": {"note": 1}, "https://a.example/": {}}`)
	tasks, err := Decode(data, 2)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("tasks = %d, want 2", len(tasks))
	}
	if tasks[0].URL != "https://a.example/" {
		t.Errorf("tasks not sorted: %+v", tasks)
	}
}

func TestDecodeEmpty(t *testing.T) {
	if _, err := Decode([]byte("  "), 1); err == nil {
		t.Error("empty input should fail")
	}
}

func TestMergePriority(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.json")
	second := filepath.Join(dir, "second.json")
	os.WriteFile(first, []byte(`{"urls_by_depth": {"1": ["https://shared.example/", "https://only-first.example/"]}}`), 0o644)
	os.WriteFile(second, []byte(`{"urls_by_depth": {"0": ["https://shared.example/", "https://only-second.example/"]}}`), 0o644)

	tasks, err := Merge([]string{first, second}, 2)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("tasks = %d, want 3", len(tasks))
	}
	// First file sets the order; the later file still lowers the depth.
	if tasks[0].URL != "https://shared.example/" || tasks[0].Depth != 0 {
		t.Errorf("shared task = %+v, want depth 0 at position 0", tasks[0])
	}
}

func TestMergeNoURLs(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.json")
	os.WriteFile(empty, []byte(`[]`), 0o644)
	if _, err := Merge([]string{empty}, 1); err == nil {
		t.Error("merge of empty maps should fail")
	}
}

func TestLimit(t *testing.T) {
	tasks := []Task{{URL: "a"}, {URL: "b"}, {URL: "c"}}
	if got := Limit(tasks, 2); len(got) != 2 || got[1].URL != "b" {
		t.Errorf("Limit = %+v", got)
	}
	if got := Limit(tasks, 0); len(got) != 3 {
		t.Errorf("Limit(0) = %+v", got)
	}
}
