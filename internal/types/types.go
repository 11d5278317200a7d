package types

import "time"

// Sample is one recognized frame. Text is empty when nothing usable was read.
type Sample struct {
	At   time.Duration
	Text string
}

// HasText reports whether the sample carries recognized text.
func (s Sample) HasText() bool { return s.Text != "" }

type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

type RecognitionStatus int

const (
	RecognitionEmpty RecognitionStatus = iota
	RecognitionText
	RecognitionFailed
)

func (s RecognitionStatus) String() string {
	switch s {
	case RecognitionText:
		return "text"
	case RecognitionFailed:
		return "failed"
	default:
		return "empty"
	}
}

// Recognition is the outcome of running OCR on a single frame.
type Recognition struct {
	Status RecognitionStatus
	Text   string
	Err    error
}

func TextResult(text string) Recognition {
	return Recognition{Status: RecognitionText, Text: text}
}

func EmptyResult() Recognition {
	return Recognition{Status: RecognitionEmpty}
}

func FailedResult(err error) Recognition {
	return Recognition{Status: RecognitionFailed, Err: err}
}

type Manifest struct {
	Input     string        `json:"input"`
	Language  string        `json:"language"`
	Subtitles string        `json:"subtitles"`
	Format    string        `json:"format"`
	Samples   int           `json:"samples"`
	Cues      []ManifestCue `json:"cues"`
}

type ManifestCue struct {
	Index    int     `json:"index"`
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	Text     string  `json:"text"`
}
