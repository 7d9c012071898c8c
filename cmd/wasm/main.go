//go:build js && wasm

package main

import (
	"syscall/js"

	"github.com/dohnagen/sheetgen/internal/engine"
)

var eng *engine.Engine

// commitHandler is the JS function that posts a commit to the server.
var commitHandler js.Value

func main() {
	eng = engine.NewEngine(forwardCommit, nil)

	api := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	api.Set("loadDocument", js.FuncOf(loadDocument))
	api.Set("updateDocument", js.FuncOf(updateDocument))
	api.Set("handleEvent", js.FuncOf(handleEvent))
	api.Set("setViewportWidth", js.FuncOf(setViewportWidth))
	api.Set("setCommitHandler", js.FuncOf(setCommitHandler))
	api.Set("reset", js.FuncOf(reset))

	// --- Queries (frontend ← engine) ---
	api.Set("display", js.FuncOf(display))
	api.Set("dragging", js.FuncOf(dragging))
	api.Set("getDocument", js.FuncOf(getDocument))
	api.Set("getScaleFactor", js.FuncOf(getScaleFactor))
	api.Set("previewScale", js.FuncOf(previewScale))

	js.Global().Set("sheetgenEngine", api)
	js.Global().Set("sheetgenWasmReady", js.ValueOf(true))

	select {}
}

func forwardCommit(op []byte) {
	if commitHandler.Type() != js.TypeFunction {
		return
	}
	commitHandler.Invoke(string(op))
}

func result(err error) interface{} {
	if err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func missing(what string) interface{} {
	return js.ValueOf(map[string]interface{}{"error": "missing " + what})
}

// --- Command Handlers ---

func loadDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("document JSON")
	}
	return result(eng.LoadDocument(args[0].String()))
}

func updateDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("document JSON")
	}
	return result(eng.UpdateDocument(args[0].String()))
}

func handleEvent(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(`{"error":"missing event JSON"}`)
	}
	return js.ValueOf(eng.HandleEvent(args[0].String()))
}

func setViewportWidth(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(eng.GetScaleFactor())
	}
	return js.ValueOf(eng.SetViewportWidth(args[0].Float()))
}

func setCommitHandler(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		commitHandler = js.Undefined()
		return nil
	}
	commitHandler = args[0]
	return nil
}

func reset(this js.Value, args []js.Value) interface{} {
	eng.Reset()
	return nil
}

// --- Query Handlers ---

func display(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(`{"error":"missing key JSON"}`)
	}
	return js.ValueOf(eng.Display(args[0].String()))
}

func dragging(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Dragging())
}

func getDocument(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetDocument())
}

func getScaleFactor(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetScaleFactor())
}

func previewScale(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(engine.PreviewScale(0))
	}
	return js.ValueOf(engine.PreviewScale(args[0].Float()))
}
