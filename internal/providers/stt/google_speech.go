package stt

import (
	"context"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
)

type GoogleSpeech struct {
	c *speech.Client

	Encoding        speechpb.RecognitionConfig_AudioEncoding
	SampleRateHz    int32
	DefaultLanguage string
}

func NewGoogleSpeech(ctx context.Context, credentialsFile, language string) (*GoogleSpeech, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if language == "" {
		language = "en-US"
	}
	return &GoogleSpeech{
		c:               c,
		Encoding:        speechpb.RecognitionConfig_LINEAR16,
		SampleRateHz:    16000,
		DefaultLanguage: language,
	}, nil
}

func (g *GoogleSpeech) Close() error { return g.c.Close() }

// language example: "en-US", "es-ES"
func (g *GoogleSpeech) Transcribe(ctx context.Context, audio []byte, language string) (string, float64, error) {
	if language = strings.TrimSpace(language); language == "" {
		language = g.DefaultLanguage
	}

	resp, err := g.c.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   g.Encoding,
			SampleRateHertz:            g.SampleRateHz,
			LanguageCode:               language,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return "", 0, err
	}

	text, conf := joinResults(resp.Results)
	return text, conf, nil
}

// joinResults concatenates the best alternative of each result segment and
// returns the lowest segment confidence.
func joinResults(results []*speechpb.SpeechRecognitionResult) (string, float64) {
	var parts []string
	conf := 0.0
	for _, r := range results {
		var best *speechpb.SpeechRecognitionAlternative
		for _, alt := range r.Alternatives {
			if alt.Transcript == "" {
				continue
			}
			if best == nil || alt.Confidence > best.Confidence {
				best = alt
			}
		}
		if best == nil {
			continue
		}
		parts = append(parts, strings.TrimSpace(best.Transcript))
		c := float64(best.Confidence)
		if len(parts) == 1 || c < conf {
			conf = c
		}
	}
	return strings.Join(parts, " "), conf
}
