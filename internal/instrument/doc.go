// Package instrument wraps methods so that every call produces a CallRecord.
//
// Go cannot patch methods of foreign types at run time, so instrumentable
// types route their methods through a Class: a named dispatch table shared by
// every instance of the type. Install swaps a table entry for a recording
// wrapper; because all instances call through the table, the swap affects
// them all, and because the wrapper keeps a pointer to the method it
// replaced, a second Install on the same entry is a no-op.
//
// Parent linkage travels in context.Context. A wrapper opens its record,
// stores it in the context handed to the original method, and any
// instrumented call made with that context becomes a child. Calls on
// unrelated contexts, including concurrent ones, never link to each other.
//
// Finished records are handed to sinks by a background goroutine owned by the
// Instrumenter, so a slow or failing sink never delays or breaks the call.
// Flush waits for that hand-off; Close stops it.
//
// Basic usage:
//
//	var clientClass = instrument.NewClass("svc.Client")
//
//	func init() {
//		clientClass.Define("Complete",
//			domain.NewSignature("Complete", domain.Required("prompt")),
//			func(ctx context.Context, self any, args []any, kwargs map[string]any) (any, error) {
//				return self.(*Client).complete(ctx, args[0].(string))
//			})
//	}
//
//	inst := instrument.New(instrument.Options{Sink: mySink})
//	if err := inst.Install(clientClass, "Complete"); err != nil {
//		return err
//	}
package instrument
