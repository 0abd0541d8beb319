// Package config handles platform configuration
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr      string
	GRPCAddr      string
	SessionAPIURL string
	SessionAPIKey string
	APITimeout    time.Duration
	RecordingsDB  string
	PersonasFile  string
	LogLevel      string

	// ResultRetention is how long a completed session stays in memory.
	ResultRetention time.Duration

	// Capture. CaptureSource is "remote" (frames and audio pushed by the
	// frontend) or "local" (devices on this machine).
	CaptureSource        string
	SampleRate           int
	AllowMicrophone      bool
	AllowCamera          bool
	CameraDevice         string
	FrameRate            float64 // Hz
	ExcludedAudioDevices []string
	RecordingTimeslice   time.Duration

	// Speech. SpeechOutput is "remote" (the frontend speaks) or "local".
	SpeechOutput      string
	TTSCommand        string
	ListenDelay       time.Duration
	SpeechLevelFloor  float64
	MaxSilenceChunks  int
	MinAnswerLength   int
	RoundDisplayDelay time.Duration
}

func Load() *Config {
	return &Config{
		HTTPAddr:      getEnv("HTTP_ADDR", ":8000"),
		GRPCAddr:      getEnv("GRPC_ADDR", ":8001"),
		SessionAPIURL: getEnv("SESSION_API_URL", "http://localhost:5000/api"),
		SessionAPIKey: getEnv("SESSION_API_KEY", ""),
		APITimeout:    getEnvDuration("SESSION_API_TIMEOUT", 15*time.Second),
		RecordingsDB:  getEnv("RECORDINGS_DB", "recordings.db"),
		PersonasFile:  getEnv("PERSONAS_FILE", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		ResultRetention: getEnvDuration("RESULT_RETENTION", 10*time.Minute),

		CaptureSource:        getEnv("CAPTURE_SOURCE", "remote"),
		SampleRate:           getEnvInt("SAMPLE_RATE", 16000),
		AllowMicrophone:      getEnvBool("ALLOW_MICROPHONE", true),
		AllowCamera:          getEnvBool("ALLOW_CAMERA", true),
		CameraDevice:         getEnv("CAMERA_DEVICE", ""),
		FrameRate:            getEnvFloat("FRAME_RATE", 5.0),
		ExcludedAudioDevices: getEnvList("EXCLUDED_AUDIO_DEVICES", []string{"blackhole", "teams"}),
		RecordingTimeslice:   getEnvDuration("RECORDING_TIMESLICE", time.Second),

		SpeechOutput:      getEnv("SPEECH_OUTPUT", "remote"),
		TTSCommand:        getEnv("TTS_COMMAND", ""),
		ListenDelay:       getEnvDuration("LISTEN_DELAY", 500*time.Millisecond),
		SpeechLevelFloor:  getEnvFloat("SPEECH_LEVEL_FLOOR", 0.02),
		MaxSilenceChunks:  getEnvInt("MAX_SILENCE_CHUNKS", 15),
		MinAnswerLength:   getEnvInt("MIN_ANSWER_LENGTH", 10),
		RoundDisplayDelay: getEnvDuration("ROUND_DISPLAY_DELAY", 3*time.Second),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

// getEnvDuration accepts Go durations ("2s") or bare milliseconds ("2000").
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}

func getEnvList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		return result
	}
	return def
}
