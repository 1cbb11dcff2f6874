// Package engine is the entry point for compiling and rendering templates.
//
// An Engine pairs the erb compiler with one evaluator. It offers:
//   - Compilation with an in-memory cache of compiled programs
//   - Rendering to a string or an io.Writer
//   - Isolated renders on dedicated workers, bounded by MaxWorkers
//   - Named templates registered once and rendered by name
//
// Usage Example:
//
//	ev, err := evaluator.New("js")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	eng, err := engine.NewEngine(ev, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	tmpl, err := eng.Compile("Hello <%= name %>!", engine.Options{})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	out, err := eng.Render(ctx, tmpl, map[string]interface{}{"name": "John"})
//	fmt.Println(out) // "Hello John!"
//
// Compiled templates are immutable and may be rendered from any number of
// goroutines at once. Embedded code runs to completion; there is no timeout.
package engine
