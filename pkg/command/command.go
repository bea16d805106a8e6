// Package command turns recognized speech into robot decisions.
//
// Parse is pure: the same (text, blocked, rooms) always yields the same
// Decision. The orchestrator applies the decision to task memory and the
// motion controller.
package command

import (
	"fmt"
	"sort"
	"strings"

	"github.com/teslashibe/nova-guide/pkg/motion"
)

// Task is the single motion intent retained across obstacle pauses.
type Task struct {
	Action      motion.Action `json:"action"`
	Speed       int           `json:"speed"`
	Destination string        `json:"destination,omitempty"`
}

func (t Task) String() string {
	if t.Destination != "" {
		return fmt.Sprintf("%s(%d) to %s", t.Action, t.Speed, t.Destination)
	}
	return fmt.Sprintf("%s(%d)", t.Action, t.Speed)
}

// Kind classifies a parsed command.
type Kind int

const (
	// None is empty input. No state change and nothing spoken.
	None Kind = iota
	// Stop clears the task and stops the motors.
	Stop
	// Navigate replaces the task and starts driving.
	Navigate
	// Turn is a one-shot turn that leaves the task untouched.
	Turn
	// Help speaks the available commands.
	Help
	// Refused is a movement command rejected because the path is blocked.
	Refused
	// Unrecognized text produces spoken feedback only.
	Unrecognized
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Stop:
		return "stop"
	case Navigate:
		return "navigate"
	case Turn:
		return "turn"
	case Help:
		return "help"
	case Refused:
		return "refused"
	case Unrecognized:
		return "unrecognized"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Decision is the outcome of parsing one utterance.
type Decision struct {
	Kind Kind
	// Task is set for Navigate (the new task) and Turn (the turn to run).
	Task *Task
	// Reply is spoken back to the user. Empty means silence.
	Reply string
}

// Phrases spoken by the robot.
const (
	PhraseStop         = "Stopping all movement and cancelling task."
	PhraseUnrecognized = "Sorry, I did not recognize that command."
)

// Built-in destinations. All of them drive forward at the default speed.
var destinations = []struct {
	keyword string
	reply   string
	refusal string
}{
	{"kitchen", "Okay, going to the kitchen.", RefusalFor("the kitchen")},
	{"bathroom", "Okay, going to the bathroom.", RefusalFor("the bathroom")},
	{"outside", "Okay, going outside.", "I cannot go outside, my path is blocked."},
}

// Normalize case-folds and trims recognized text.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Parse classifies text. Rules are checked in order and the first match
// wins: stop, turn left, turn right, built-in destinations, learned rooms,
// forward, backward, help. While blocked every movement command is
// refused.
func Parse(text string, blocked bool, rooms []string) Decision {
	cmd := Normalize(text)
	if cmd == "" {
		return Decision{Kind: None}
	}

	if strings.Contains(cmd, "stop") {
		return Decision{Kind: Stop, Reply: PhraseStop}
	}

	if strings.Contains(cmd, "turn left") {
		return turn(motion.TurnLeft, "left", blocked)
	}
	if strings.Contains(cmd, "turn right") {
		return turn(motion.TurnRight, "right", blocked)
	}

	for _, d := range destinations {
		if strings.Contains(cmd, d.keyword) {
			return navigate(d.keyword, d.reply, d.refusal, blocked)
		}
	}

	if room, ok := matchRoom(cmd, rooms); ok {
		return navigate(room, fmt.Sprintf("Okay, going to the %s.", room), RefusalFor("the "+room), blocked)
	}

	if strings.Contains(cmd, "forward") {
		return move(motion.MoveForward, "move forward", "Okay, moving forward.", blocked)
	}
	if strings.Contains(cmd, "backward") {
		return move(motion.MoveBackward, "move backward", "Okay, moving backward.", blocked)
	}

	if strings.Contains(cmd, "help") {
		return Decision{Kind: Help, Reply: HelpText(rooms)}
	}

	return Decision{Kind: Unrecognized, Reply: PhraseUnrecognized}
}

// RefusalFor is spoken when a movement toward place is rejected.
func RefusalFor(place string) string {
	return fmt.Sprintf("I cannot go to %s, my path is blocked.", place)
}

func refuse(reply string) Decision {
	return Decision{Kind: Refused, Reply: reply}
}

func navigate(dest, reply, refusal string, blocked bool) Decision {
	if blocked {
		return refuse(refusal)
	}
	return Decision{
		Kind:  Navigate,
		Task:  &Task{Action: motion.MoveForward, Speed: motion.DefaultSpeed, Destination: dest},
		Reply: reply,
	}
}

func move(a motion.Action, verb, reply string, blocked bool) Decision {
	if blocked {
		return refuse(fmt.Sprintf("I cannot %s, my path is blocked.", verb))
	}
	return Decision{
		Kind:  Navigate,
		Task:  &Task{Action: a, Speed: motion.DefaultSpeed},
		Reply: reply,
	}
}

func turn(a motion.Action, side string, blocked bool) Decision {
	if blocked {
		return refuse(fmt.Sprintf("I cannot turn %s, my path is blocked.", side))
	}
	return Decision{
		Kind:  Turn,
		Task:  &Task{Action: a, Speed: motion.DefaultSpeed},
		Reply: fmt.Sprintf("Turning %s.", side),
	}
}

// matchRoom finds "go to <room>" for a learned room. Longer names are
// tried first so "living room" wins over "room".
func matchRoom(cmd string, rooms []string) (string, bool) {
	names := make([]string, 0, len(rooms))
	for _, r := range rooms {
		if n := Normalize(r); n != "" {
			names = append(names, n)
		}
	}
	sort.SliceStable(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })

	for _, n := range names {
		if strings.Contains(cmd, "go to "+n) || strings.Contains(cmd, "go to the "+n) {
			return n, true
		}
	}
	return "", false
}
