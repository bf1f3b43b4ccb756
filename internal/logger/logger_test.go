package logger

import (
	"bytes"
	"log/slog"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func redirectLogsToGivenBuffer(buf *bytes.Buffer, level string) {
	levelVar := new(slog.LevelVar)
	defaultLogger = slog.New(
		defaultLoggerFactory.createJSONOrTextHandler(buf, levelVar, ""),
	)
	setLoggingLevel(level, levelVar)
}

func fetchLogOutputForSpecifiedSeverityLevel(level string, functions []func()) []string {
	var buf bytes.Buffer
	redirectLogsToGivenBuffer(&buf, level)

	var output []string
	for _, f := range functions {
		f()
		output = append(output, buf.String())
		buf.Reset()
	}
	return output
}

func testLoggingFunctions() []func() {
	return []func(){
		func() { Tracef("trace") },
		func() { Debugf("debug") },
		func() { Infof("info") },
		func() { Warnf("warn") },
		func() { Errorf("error") },
	}
}

func validateOutput(t *testing.T, expected []string, output []string) {
	for i := range output {
		if expected[i] == "" {
			assert.Equal(t, expected[i], output[i])
			continue
		}
		assert.True(t, regexp.MustCompile(expected[i]).MatchString(output[i]))
	}
}

func TestTextFormat_LevelError(t *testing.T) {
	defaultLoggerFactory.format = "text"
	expected := []string{"", "", "", "", `severity=ERROR msg=error`}
	validateOutput(t, expected, fetchLogOutputForSpecifiedSeverityLevel(ERROR, testLoggingFunctions()))
}

func TestTextFormat_LevelTrace(t *testing.T) {
	defaultLoggerFactory.format = "text"
	expected := []string{
		`severity=TRACE msg=trace`,
		`severity=DEBUG msg=debug`,
		`severity=INFO msg=info`,
		`severity=WARN msg=warn`,
		`severity=ERROR msg=error`,
	}
	validateOutput(t, expected, fetchLogOutputForSpecifiedSeverityLevel(TRACE, testLoggingFunctions()))
}

func TestJSONFormat_LevelInfo(t *testing.T) {
	defaultLoggerFactory.format = "json"
	expected := []string{"", "", `"msg":"info"`, `"msg":"warn"`, `"msg":"error"`}
	validateOutput(t, expected, fetchLogOutputForSpecifiedSeverityLevel(INFO, testLoggingFunctions()))
}

func TestOffSuppressesEverything(t *testing.T) {
	defaultLoggerFactory.format = "text"
	expected := []string{"", "", "", "", ""}
	validateOutput(t, expected, fetchLogOutputForSpecifiedSeverityLevel(OFF, testLoggingFunctions()))
}
