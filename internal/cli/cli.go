// Package cli parses signcap's command line.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandTranslate  Command = "translate"
	CommandStop       Command = "stop"
	CommandCancel     Command = "cancel"
	CommandStatus     Command = "status"
	CommandUndo       Command = "undo"
	CommandClear      Command = "clear"
	CommandLesson     Command = "lesson"
	CommandListen     Command = "listen"
	CommandReport     Command = "report"
	CommandProgress   Command = "progress"
	CommandLogin      Command = "login"
	CommandSignup     Command = "signup"
	CommandLogout     Command = "logout"
	CommandDevices    Command = "devices"
	CommandDoctor     Command = "doctor"
	CommandStubServer Command = "stub-server"
	CommandVersion    Command = "version"
	CommandHelp       Command = "help"
)

// arity is the inclusive range of positional arguments a command accepts.
type arity struct{ min, max int }

var validCommands = map[Command]arity{
	CommandTranslate:  {0, 0},
	CommandStop:       {0, 0},
	CommandCancel:     {0, 0},
	CommandStatus:     {0, 0},
	CommandUndo:       {0, 0},
	CommandClear:      {0, 0},
	CommandLesson:     {0, 1},
	CommandListen:     {0, 0},
	CommandReport:     {2, 2},
	CommandProgress:   {0, 0},
	CommandLogin:      {2, 2},
	CommandSignup:     {2, 2},
	CommandLogout:     {0, 0},
	CommandDevices:    {0, 0},
	CommandDoctor:     {0, 0},
	CommandStubServer: {0, 1},
	CommandVersion:    {0, 0},
	CommandHelp:       {0, 0},
}

// LessonRestart is the lesson argument that ignores saved progress.
const LessonRestart = "restart"

type Parsed struct {
	Command    Command
	Args       []string
	ConfigPath string
	EnvFile    string
	ShowHelp   bool
}

// Parse reads global flags followed by one command and its arguments.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config", "--env-file":
			i++
			if i >= len(args) {
				return Parsed{}, fmt.Errorf("%s requires a path", arg)
			}
			if arg == "--config" {
				parsed.ConfigPath = args[i]
			} else {
				parsed.EnvFile = args[i]
			}
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			want, ok := validCommands[cmd]
			if !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			rest := args[i+1:]
			if len(rest) > want.max {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
			if len(rest) < want.min {
				return Parsed{}, fmt.Errorf("command %q requires %d arguments", arg, want.min)
			}
			for _, r := range rest {
				if strings.HasPrefix(r, "-") {
					return Parsed{}, fmt.Errorf("flags must precede command %q: %s", arg, r)
				}
			}
			if cmd == CommandLesson && len(rest) == 1 && rest[0] != LessonRestart {
				return Parsed{}, fmt.Errorf("lesson accepts only %q", LessonRestart)
			}

			parsed.Command = cmd
			parsed.Args = append([]string(nil), rest...)
			parsed.ShowHelp = cmd == CommandHelp
			return parsed, nil
		}
	}

	return parsed, nil
}

var errNoArgs = errors.New("missing argument")

// Arg returns the i-th positional argument.
func (p Parsed) Arg(i int) (string, error) {
	if i < 0 || i >= len(p.Args) {
		return "", errNoArgs
	}
	return p.Args[i], nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [--env-file PATH] <command> [args]

Capture:
  translate                   Open the sign capture screen (Enter starts a capture)
  stop                        Stop the active capture and recognize it
  cancel                      Cancel the active capture and discard it
  status                      Print the capture state and current sentence
  undo                        Remove the last word from the sentence
  clear                       Clear the sentence
  listen                      Record speech until Enter and print the transcription

Learning:
  lesson [restart]            Practice the fingerspelling alphabet
  progress                    Print saved lesson progress
  report SIGNED TRANSLATED    File recordings of TRANSLATED as a misclassified SIGNED

Account:
  login EMAIL PASSWORD        Sign in
  signup EMAIL PASSWORD       Create an account
  logout                      Sign out

Tools:
  devices                     List audio input devices
  doctor                      Run configuration and environment checks
  stub-server [ADDR]          Serve canned recognition responses (default 127.0.0.1:8000)
  version                     Print version information
  help                        Show this help

Flags:
  --config PATH     Config file path (default: $XDG_CONFIG_HOME/signcap/config.jsonc)
  --env-file PATH   Dotenv file with SIGNCAP_* overrides (default: ./.env when present)
  -h, --help        Show help
  --version         Show version
`, binaryName)
}
