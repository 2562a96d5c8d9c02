package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"go.viam.com/test"
)

// splitLine returns the tab separated parts of the next line written to `buf`.
func splitLine(t *testing.T, buf *bytes.Buffer) []string {
	t.Helper()

	output, err := buf.ReadString('\n')
	test.That(t, err, test.ShouldBeNil)
	return strings.Split(strings.TrimSuffix(output, "\n"), "\t")
}

func TestConsoleOutputFormat(t *testing.T) {
	notStdout := &bytes.Buffer{}
	logger := &impl{"slam", NewAtomicLevelAt(DEBUG), true, []Appender{NewWriterAppender(notStdout)}}

	logger.Info("info log")
	parts := splitLine(t, notStdout)
	test.That(t, parts, test.ShouldHaveLength, 5)
	test.That(t, len(parts[0]), test.ShouldEqual, len("2023-10-30T13:19:45.806Z"))
	test.That(t, parts[1], test.ShouldEqual, "INFO")
	test.That(t, parts[2], test.ShouldEqual, "slam")
	test.That(t, parts[3], test.ShouldStartWith, "logging/impl_test.go:")
	test.That(t, parts[4], test.ShouldEqual, "info log")

	logger.Debugf("cycle %d of %s", 3, "slam")
	parts = splitLine(t, notStdout)
	test.That(t, parts[1], test.ShouldEqual, "DEBUG")
	test.That(t, parts[4], test.ShouldEqual, "cycle 3 of slam")

	logger.Warnw("insufficient matches", "matches", 4, "required", 8)
	parts = splitLine(t, notStdout)
	test.That(t, parts, test.ShouldHaveLength, 6)
	test.That(t, parts[1], test.ShouldEqual, "WARN")
	fields := map[string]any{}
	test.That(t, json.Unmarshal([]byte(parts[5]), &fields), test.ShouldBeNil)
	test.That(t, fields, test.ShouldResemble, map[string]any{"matches": 4.0, "required": 8.0})
}

func TestLevels(t *testing.T) {
	notStdout := &bytes.Buffer{}
	logger := &impl{"", NewAtomicLevelAt(WARN), true, []Appender{NewWriterAppender(notStdout)}}

	logger.Debug("hidden")
	logger.Info("hidden")
	test.That(t, notStdout.Len(), test.ShouldEqual, 0)

	logger.Error("shown")
	parts := splitLine(t, notStdout)
	test.That(t, parts[len(parts)-1], test.ShouldEqual, "shown")

	// Debug mode on the context overrides the level for `C` variants.
	ctx := EnableDebugMode(context.Background(), "")
	test.That(t, IsDebugMode(ctx), test.ShouldBeTrue)
	logger.CDebugw(ctx, "forced")
	parts = splitLine(t, notStdout)
	test.That(t, parts[len(parts)-1], test.ShouldEqual, "forced")

	logger.SetLevel(DEBUG)
	test.That(t, logger.GetLevel(), test.ShouldEqual, DEBUG)
}

func TestLevelFromString(t *testing.T) {
	for _, tc := range []struct {
		in       string
		expected Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"Warning", WARN},
		{"error", ERROR},
	} {
		level, err := LevelFromString(tc.in)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, tc.expected)
	}
	_, err := LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)

	var level Level
	test.That(t, json.Unmarshal([]byte(`"warn"`), &level), test.ShouldBeNil)
	test.That(t, level, test.ShouldEqual, WARN)
}

func TestSublogger(t *testing.T) {
	logger, observed := NewObservedTestLogger(t)
	sub := logger.Sublogger("tracker").Sublogger("orb")
	sub.Infow("detected", "keypoints", 12)

	entries := observed.FilterMessage("detected").All()
	test.That(t, entries, test.ShouldHaveLength, 1)
	test.That(t, entries[0].LoggerName, test.ShouldEqual, "tracker.orb")
	test.That(t, entries[0].ContextMap()["keypoints"], test.ShouldEqual, int64(12))
}
