package node

import "sync"

// Level is a physical output level.
type Level int

const (
	LevelLow Level = iota
	LevelHigh
)

func (l Level) String() string {
	if l == LevelHigh {
		return "high"
	}
	return "low"
}

// ActiveLevel is the level that makes the LED visible.
const ActiveLevel = LevelHigh

// LEDCommandLevel maps a command's led value to an output level. The mapping
// is inverted: 0 activates the LED, any other value deactivates it.
func LEDCommandLevel(v int) Level {
	if v == 0 {
		return LevelHigh
	}
	return LevelLow
}

// Actuator drives one digital output.
type Actuator interface {
	Set(level Level) error
	Level() Level
}

// LED is an in-memory actuator. It starts low, like the board pin after setup.
type LED struct {
	mu     sync.Mutex
	level  Level
	writes int
	onSet  func(Level)
}

func NewLED() *LED {
	return &LED{level: LevelLow}
}

// OnSet registers a hook called after every write.
func (l *LED) OnSet(fn func(Level)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onSet = fn
}

func (l *LED) Set(level Level) error {
	l.mu.Lock()
	l.level = level
	l.writes++
	fn := l.onSet
	l.mu.Unlock()
	if fn != nil {
		fn(level)
	}
	return nil
}

func (l *LED) Level() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// Writes counts Set calls, including writes of the current level.
func (l *LED) Writes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writes
}
