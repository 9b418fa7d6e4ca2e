package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	speak := "spd-say --wait"

	return Config{
		Recognition: RecognitionConfig{
			BaseURL:    "http://127.0.0.1:8000",
			AudioField: "file",
			TimeoutMS:  30000,
		},
		Capture: CaptureConfig{
			TotalMS:       5000,
			PreparationMS: 1000,
			MaxDurationMS: 5000,
			Device:        "/dev/video0",
			InputFormat:   "v4l2",
			FFmpeg:        "ffmpeg",
		},
		Lesson: LessonConfig{
			CooldownMS:     500,
			PollIntervalMS: 300,
			SaveIntervalMS: 10000,
		},
		Audio: AudioConfig{
			Input:         "default",
			Fallback:      "default",
			MaxDurationMS: 30000,
		},
		Speech: SpeechConfig{
			Enable:  true,
			Command: mustParseCommand(speak),
		},
		Transcript: TranscriptConfig{},
		Progress:   ProgressConfig{Store: StoreSQLite},
		Archive: ArchiveConfig{
			Enable: true,
			Store:  StoreLocal,
			Bucket: "videos",
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			Width:          40,
			SoundEnable:    true,
			DesktopAppName: "signcap",
		},
		Debug: DebugConfig{},
	}
}
