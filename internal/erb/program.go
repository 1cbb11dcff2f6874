package erb

// Program is a compiled template. It never changes after Compile returns and
// may be shared by any number of concurrent renders.
type Program struct {
	text         string
	accumulator  string
	dialect      string
	trimMode     TrimMode
	percent      bool
	instructions []Instruction
	lines        int
}

// Source returns the generated program text.
func (p *Program) Source() string { return p.text }

// Accumulator returns the name of the output variable.
func (p *Program) Accumulator() string { return p.accumulator }

// Dialect returns the name of the dialect the program was generated for.
func (p *Program) Dialect() string { return p.dialect }

// TrimMode returns the trim mode the template was compiled with.
func (p *Program) TrimMode() TrimMode { return p.trimMode }

// Percent reports whether percent lines were enabled.
func (p *Program) Percent() bool { return p.percent }

// Lines returns the number of lines of program text.
func (p *Program) Lines() int { return p.lines }

// Instructions returns a copy of the instruction sequence.
func (p *Program) Instructions() []Instruction {
	out := make([]Instruction, len(p.instructions))
	copy(out, p.instructions)
	return out
}
