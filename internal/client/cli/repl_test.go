package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"
)

type fakeExec struct {
	business string

	calls []string
}

func (f *fakeExec) hasBusiness() bool { return f.business != "" }
func (f *fakeExec) Use(ctx context.Context, args []string) error {
	f.calls = append(f.calls, "use")
	if len(args) > 0 {
		f.business = args[0]
	}
	return nil
}
func (f *fakeExec) List(ctx context.Context) error { f.calls = append(f.calls, "list"); return nil }
func (f *fakeExec) Search(ctx context.Context, args []string) error {
	f.calls = append(f.calls, "search")
	return nil
}
func (f *fakeExec) Add(ctx context.Context, args []string) error {
	f.calls = append(f.calls, "add")
	return nil
}
func (f *fakeExec) Update(ctx context.Context, args []string) error {
	f.calls = append(f.calls, "update")
	return nil
}
func (f *fakeExec) Delete(ctx context.Context, args []string) error {
	f.calls = append(f.calls, "del")
	return nil
}
func (f *fakeExec) Images(ctx context.Context, args []string) error {
	f.calls = append(f.calls, "images")
	return nil
}
func (f *fakeExec) Cats(ctx context.Context) error { f.calls = append(f.calls, "cats"); return nil }
func (f *fakeExec) AddCat(ctx context.Context, args []string) error {
	f.calls = append(f.calls, "addcat")
	return nil
}
func (f *fakeExec) DelCat(ctx context.Context, args []string) error {
	f.calls = append(f.calls, "delcat")
	return nil
}
func (f *fakeExec) Sync(ctx context.Context) error { f.calls = append(f.calls, "sync"); return nil }
func (f *fakeExec) FullSync(ctx context.Context) error {
	f.calls = append(f.calls, "fullsync")
	return nil
}
func (f *fakeExec) Status(ctx context.Context) error {
	f.calls = append(f.calls, "status")
	return nil
}

func TestRunREPL_SelectBusinessAndDispatch(t *testing.T) {
	origPrint := printlnFn
	printlnFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = origPrint })

	input := strings.NewReader(strings.Join([]string{
		"help",
		"use biz1",
		"help",
		"add Mug 5",
		"list",
		"search mug",
		"update p1 price 9",
		"images p1 https://img/1",
		"sync",
		"status",
		"foobar",
		"exit",
	}, "\n"))

	exec := &fakeExec{}
	sc := bufio.NewScanner(input)

	runREPL(context.Background(), exec, func() string { return "status" }, sc)

	wantOrder := []string{"use", "add", "list", "search", "update", "images", "sync", "status"}
	if len(exec.calls) < len(wantOrder) {
		t.Fatalf("few calls: %+v", exec.calls)
	}
	idx := 0
	for _, c := range exec.calls {
		if idx < len(wantOrder) && c == wantOrder[idx] {
			idx++
		}
	}
	if idx != len(wantOrder) {
		t.Fatalf("commands order mismatch: got %v, want subseq %v", exec.calls, wantOrder)
	}
}

func TestRunREPL_CommandsNeedBusiness(t *testing.T) {
	origPrint := printlnFn
	printlnFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = origPrint })

	input := strings.NewReader("list\nadd Mug 5\nsync\nquit\n")
	exec := &fakeExec{}
	sc := bufio.NewScanner(input)

	runREPL(context.Background(), exec, func() string { return "s" }, sc)

	if len(exec.calls) != 0 {
		t.Fatalf("unexpected calls without a selected business: %v", exec.calls)
	}
}
