// Package erb compiles templates with embedded <% %> directives into program
// text for a pluggable evaluator.
//
// Directives:
//
//	<% code %>     run code, no output
//	<%= expr %>    append the value of expr
//	<%# text %>    comment, dropped
//	<%% and %%>    literal <% and %>
//	% code         whole-line code when percent lines are enabled
//	%%             literal % at the start of a line in percent mode
//
// Compilation is three stages. A Scanner produces tokens under one of four
// trim modes, the Compiler interprets them into Instructions, and a Buffer
// renders the instructions through a Dialect into program text, keeping one
// program line per template line. The embedded code is never parsed here; it
// is passed through to the evaluator untouched.
//
//	prog, err := erb.Compile("Hello <%= name %>!\n", erb.WithTrimMode(erb.TrimAfterClose))
//	if err != nil {
//		return err
//	}
//	fmt.Println(prog.Source())
package erb
