package main

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vito/promptline/pkg/input"
	"github.com/vito/promptline/pkg/prompt"
	"github.com/vito/promptline/pkg/render/rendertest"
)

func TestLoadQuestionsFromArg(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[question]]\nname = \"a\"\nmessage = \"A?\"\n"), 0644))

	got, file, err := loadQuestions([]string{path})
	require.NoError(t, err)
	assert.Equal(t, path, got)
	assert.Equal(t, "a", file.Questions[0].Name)
}

func TestLoadQuestionsMissing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0755))
	t.Chdir(dir)

	_, _, err := loadQuestions(nil)
	assert.ErrorContains(t, err, "no promptline.toml found")
}

func TestAnswer(t *testing.T) {
	assert.Equal(t, "bob", answer(prompt.NewText("name"), "bob"))
	assert.Equal(t, true, answer(prompt.NewConfirm("ok?", true), "true"))
}

func TestStatsHub(t *testing.T) {
	hub := newStatsHub(2)
	hub.publish([]byte(`{"seq":1}`))
	hub.publish([]byte(`{"seq":2}`))
	hub.publish([]byte(`{"seq":3}`))

	past, ch := hub.subscribe()
	assert.Equal(t, [][]byte{[]byte(`{"seq":2}`), []byte(`{"seq":3}`)}, past)

	hub.publish([]byte(`{"seq":4}`))
	assert.Equal(t, []byte(`{"seq":4}`), <-ch)

	hub.unsubscribe(ch)
	hub.publish([]byte(`{"seq":5}`))
	assert.Empty(t, ch)
}

func TestStatsHubServeSSE(t *testing.T) {
	hub := newStatsHub(10)
	hub.publish([]byte(`{"seq":1}`))
	srv := httptest.NewServer(http.HandlerFunc(hub.serveSSE))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	body := bufio.NewReader(resp.Body)
	readEvent := func() string {
		t.Helper()
		data, err := body.ReadString('\n')
		require.NoError(t, err)
		blank, err := body.ReadString('\n')
		require.NoError(t, err)
		assert.Equal(t, "\n", blank)
		return data
	}
	assert.Equal(t, "data: {\"seq\":1}\n", readEvent())

	// The handler subscribes before sending history.
	hub.publish([]byte(`{"seq":2}`))
	assert.Equal(t, "data: {\"seq\":2}\n", readEvent())
}

func TestTailStats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "render.log")
	require.NoError(t, os.WriteFile(path, []byte(`{"seq":0}`+"\n"), 0644))

	var (
		mu  sync.Mutex
		got []string
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		tailStats(ctx, path, func(b []byte) {
			mu.Lock()
			got = append(got, string(b))
			mu.Unlock()
		})
	}()

	// Give the tailer time to seek past existing records.
	time.Sleep(200 * time.Millisecond)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"seq":1}` + "\nnot json\n" + `{"seq":`)
	require.NoError(t, err)
	_, err = f.WriteString(`2}` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, []string{`{"seq":1}`, `{"seq":2}`}, got)
}

func TestStressCursorFollowsField(t *testing.T) {
	screen := rendertest.NewScreen(120)
	s := newStress(screen, func() int { return 120 }, 1)
	s.append(3)
	s.render()

	cursorAt := func(wantRow, wantCol int) {
		t.Helper()
		row, col := screen.Cursor()
		assert.Equal(t, wantRow, row)
		assert.Equal(t, wantCol, col)
	}
	cursorAt(4, 2)

	s.command("+3")
	s.render()
	cursorAt(7, 2)

	s.field.Apply(input.Type("ab"))
	s.render()
	cursorAt(7, 4)

	s.command("-5")
	s.render()
	cursorAt(2, 4)

	s.command("repaint x")
	s.render()
	cursorAt(3, 4)
	assert.Equal(t, "› ab", screen.Lines()[3])
	assert.Empty(t, screen.Violations)
}
