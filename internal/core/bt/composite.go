package bt

// Composite holds an ordered list of children it exclusively owns.
type Composite struct {
	BaseNode
	children []Node
}

func newComposite(name string, props map[string]any, children []Node) Composite {
	return Composite{BaseNode: NewBaseNode(name, CategoryComposite, props), children: children}
}

func (c *Composite) Children() []Node { return c.children }

// closeRest aborts the children after index i that are still open from an
// earlier tick.
func (c *Composite) closeRest(t *Tick, i int) error {
	if i+1 >= len(c.children) {
		return nil
	}
	return AbortAll(t, c.children[i+1:]...)
}

// Sequence runs children in order until one does not succeed.
// Empty sequences succeed.
type Sequence struct{ Composite }

func NewSequence(name string, children ...Node) *Sequence {
	return &Sequence{Composite: newComposite(name, nil, children)}
}

func (s *Sequence) Run(t *Tick) (Status, error) {
	for i, ch := range s.children {
		st, err := Execute(ch, t)
		if err != nil {
			return st, err
		}
		if st != StatusSuccess {
			return st, s.closeRest(t, i)
		}
	}
	return StatusSuccess, nil
}

// Selector runs children in order until one does not fail.
// Empty selectors fail.
type Selector struct{ Composite }

func NewSelector(name string, children ...Node) *Selector {
	return &Selector{Composite: newComposite(name, nil, children)}
}

func (s *Selector) Run(t *Tick) (Status, error) {
	for i, ch := range s.children {
		st, err := Execute(ch, t)
		if err != nil {
			return st, err
		}
		if st != StatusFailure {
			return st, s.closeRest(t, i)
		}
	}
	return StatusFailure, nil
}

const memRunningChild = "running_child"

// MemSequence is a Sequence that resumes from the child that was running on
// the previous tick instead of re-checking the ones that already succeeded.
type MemSequence struct{ Composite }

func NewMemSequence(name string, children ...Node) *MemSequence {
	return &MemSequence{Composite: newComposite(name, nil, children)}
}

func (s *MemSequence) Start(t *Tick) error {
	t.Memory(s)[memRunningChild] = 0
	return nil
}

func (s *MemSequence) Run(t *Tick) (Status, error) {
	mem := t.Memory(s)
	from, _ := mem[memRunningChild].(int)
	for i := from; i < len(s.children); i++ {
		st, err := Execute(s.children[i], t)
		if err != nil {
			return st, err
		}
		if st != StatusSuccess {
			if st == StatusRunning {
				mem[memRunningChild] = i
			}
			return st, s.closeRest(t, i)
		}
	}
	return StatusSuccess, nil
}

// MemSelector is a Selector that resumes from the child that was running on
// the previous tick.
type MemSelector struct{ Composite }

func NewMemSelector(name string, children ...Node) *MemSelector {
	return &MemSelector{Composite: newComposite(name, nil, children)}
}

func (s *MemSelector) Start(t *Tick) error {
	t.Memory(s)[memRunningChild] = 0
	return nil
}

func (s *MemSelector) Run(t *Tick) (Status, error) {
	mem := t.Memory(s)
	from, _ := mem[memRunningChild].(int)
	for i := from; i < len(s.children); i++ {
		st, err := Execute(s.children[i], t)
		if err != nil {
			return st, err
		}
		if st != StatusFailure {
			if st == StatusRunning {
				mem[memRunningChild] = i
			}
			return st, s.closeRest(t, i)
		}
	}
	return StatusFailure, nil
}

// ParallelPolicy decides when a Parallel node is done.
type ParallelPolicy int

const (
	// ParallelRequireAll succeeds when every child succeeded and fails as soon as one fails.
	ParallelRequireAll ParallelPolicy = iota
	// ParallelRequireOne succeeds as soon as one child succeeded and fails when all failed.
	ParallelRequireOne
)

func (p ParallelPolicy) String() string {
	switch p {
	case ParallelRequireAll:
		return "all"
	case ParallelRequireOne:
		return "one"
	default:
		return "unknown"
	}
}

// Parallel visits every child on every tick, in declared order, and folds
// their statuses according to its policy. Children that are still running
// when the node settles are aborted. Children finished during the current
// activation are not re-run.
type Parallel struct {
	Composite
	policy ParallelPolicy
}

func NewParallel(name string, policy ParallelPolicy, children ...Node) *Parallel {
	return &Parallel{
		Composite: newComposite(name, map[string]any{"policy": policy.String()}, children),
		policy:    policy,
	}
}

func (p *Parallel) Policy() ParallelPolicy { return p.policy }

func (p *Parallel) Run(t *Tick) (Status, error) {
	if len(p.children) == 0 {
		return StatusSuccess, nil
	}
	mem := t.Memory(p)
	done, _ := mem["done"].(map[int]Status)
	if done == nil {
		done = make(map[int]Status, len(p.children))
		mem["done"] = done
	}

	successes, failures := 0, 0
	for i, ch := range p.children {
		st, finished := done[i]
		if !finished {
			var err error
			st, err = Execute(ch, t)
			if err != nil {
				return st, err
			}
			if st.IsTerminal() {
				done[i] = st
			}
		}
		switch st {
		case StatusSuccess:
			successes++
		case StatusFailure:
			failures++
		}
	}

	result := StatusRunning
	switch p.policy {
	case ParallelRequireOne:
		if successes > 0 {
			result = StatusSuccess
		} else if failures == len(p.children) {
			result = StatusFailure
		}
	default:
		if failures > 0 {
			result = StatusFailure
		} else if successes == len(p.children) {
			result = StatusSuccess
		}
	}
	if result == StatusRunning {
		return result, nil
	}
	return result, AbortAll(t, p.children...)
}
