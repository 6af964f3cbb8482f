package typescript

import "github.com/broady/fluidgen/ir"

// sseBody opens an EventSource and wires the callbacks. EventSource only
// issues GET requests, so the method is used for URL building alone.
func (g *Generator) sseBody(b *CodeBuilder, r *ir.RouteNode, method string) {
	g.urlLines(b, r, method)

	b.Blank()
	b.Block("const eventSource = new EventSource(url, {", "});", func() {
		b.Line("withCredentials: options?.withCredentials,")
		b.Line("...options")
	})

	for _, ev := range []struct{ callback, event string }{
		{"onOpen", "open"},
		{"onMessage", "message"},
		{"onError", "error"},
		{"onClose", "close"},
	} {
		b.Blank()
		b.Block("if (callbacks."+ev.callback+") {", "}", func() {
			b.Line("eventSource.addEventListener('" + ev.event + "', callbacks." + ev.callback + ");")
		})
	}

	b.Blank()
	b.Block("return {", "};", func() {
		b.Line("close: () => eventSource.close(),")
		b.Line("readyState: eventSource.readyState,")
		b.Line("url: eventSource.url,")
		b.Line("addEventListener: eventSource.addEventListener.bind(eventSource),")
		b.Line("removeEventListener: eventSource.removeEventListener.bind(eventSource)")
	})
}

// readableBody reads the response incrementally and parses every chunk as
// JSON.
func (g *Generator) readableBody(b *CodeBuilder, r *ir.RouteNode, method string) {
	g.urlLines(b, r, method)
	requestOptions(b, r, method)

	b.Blank()
	b.Block("try {", "}", func() {
		b.Line("const response = await fetch(url, requestOptions);")
		b.Blank()
		httpErrorCallback(b)
		b.Blank()
		b.Line("const reader = response.body?.getReader();")
		unreadableCallback(b)
		b.Blank()
		b.Block("while (true) {", "}", func() {
			b.Line("const { done, value } = await reader.read();")
			b.Line("if (done) break;")
			b.Blank()
			b.Block("try {", "}", func() {
				b.Line("const chunk = JSON.parse(new TextDecoder().decode(value));")
				b.Line("callbacks.onChunk?.(chunk);")
			})
			b.Block("catch (parseError) {", "}", func() {
				b.Line("callbacks.onError?.(parseError instanceof Error ? parseError : new Error('JSON parse error'));")
				b.Line("break;")
			})
		})
		b.Blank()
		b.Line("callbacks.onComplete?.();")
	})
	b.Block("catch (error) {", "}", func() {
		b.Line("callbacks.onError?.(error instanceof Error ? error : new Error('Streaming error'));")
	})
}

func (g *Generator) downloadBody(b *CodeBuilder, r *ir.RouteNode, method string) {
	g.urlLines(b, r, method)
	requestOptions(b, r, method)

	b.Blank()
	b.Line("const response = await fetch(url, requestOptions);")
	b.Blank()
	b.Block("if (!response.ok) {", "}", func() {
		b.Line("throw new Error(`HTTP ${response.status}: ${response.statusText}`);")
	})
	b.Blank()
	b.Line("return response.blob();")
}

func (g *Generator) textBody(b *CodeBuilder, r *ir.RouteNode, method string) {
	g.urlLines(b, r, method)
	requestOptions(b, r, method)

	b.Blank()
	b.Block("try {", "}", func() {
		b.Line("const response = await fetch(url, requestOptions);")
		b.Blank()
		httpErrorCallback(b)
		b.Blank()
		b.Line("const reader = response.body?.getReader();")
		b.Line("const decoder = new TextDecoder();")
		b.Blank()
		unreadableCallback(b)
		b.Blank()
		b.Block("while (true) {", "}", func() {
			b.Line("const { done, value } = await reader.read();")
			b.Line("if (done) break;")
			b.Blank()
			b.Line("const text = decoder.decode(value, { stream: true });")
			b.Line("callbacks.onChunk?.(text);")
		})
		b.Blank()
		b.Line("callbacks.onComplete?.();")
	})
	b.Block("catch (error) {", "}", func() {
		b.Line("callbacks.onError?.(error instanceof Error ? error : new Error('Text streaming error'));")
	})
}

func httpErrorCallback(b *CodeBuilder) {
	b.Block("if (!response.ok) {", "}", func() {
		b.Line("callbacks.onError?.(new Error(`HTTP ${response.status}: ${response.statusText}`));")
		b.Line("return;")
	})
}

func unreadableCallback(b *CodeBuilder) {
	b.Block("if (!reader) {", "}", func() {
		b.Line("callbacks.onError?.(new Error('Response body is not readable'));")
		b.Line("return;")
	})
}
