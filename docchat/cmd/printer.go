package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"docchat/docchat/timeline"
	"docchat/docchat/utils/color"
)

// streamPrinter renders timeline events to a terminal. Streaming replies are
// printed as deltas so the answer appears as it arrives.
type streamPrinter struct {
	mu       sync.Mutex
	out      io.Writer
	echoUser bool

	openID  string
	printed string
}

func newStreamPrinter(out io.Writer, echoUser bool) *streamPrinter {
	return &streamPrinter{out: out, echoUser: echoUser}
}

// Attach subscribes the printer to tl.
func (p *streamPrinter) Attach(tl *timeline.Timeline) (detach func()) {
	return tl.Subscribe(p.handle)
}

func (p *streamPrinter) handle(ev timeline.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	msg := ev.Message
	switch ev.Kind {
	case timeline.EventReset:
		p.openID, p.printed = "", ""
	case timeline.EventAppended:
		if msg.Type == timeline.SenderUser {
			if msg.Source == timeline.SourceVoice {
				fmt.Fprintf(p.out, "%s %s\n", color.ColorVoice("You (voice):"), msg.Content)
			} else if p.echoUser {
				fmt.Fprintf(p.out, "%s %s\n", color.ColorUser("You:"), msg.Content)
			}
			return
		}
		fmt.Fprint(p.out, color.ColorBot("DocAI: "))
		if msg.State == timeline.StateStreaming {
			p.openID, p.printed = msg.ID, ""
			p.write(msg.Content)
			return
		}
		fmt.Fprintln(p.out, msg.Content)
	case timeline.EventUpdated:
		if msg.ID != p.openID {
			return
		}
		p.write(msg.Content)
		if msg.Final() {
			if msg.State == timeline.StateCancelled {
				fmt.Fprint(p.out, color.ColorWarning(" [cancelled]"))
			}
			fmt.Fprintln(p.out)
			p.openID, p.printed = "", ""
		}
	}
}

// write prints what content adds to the text already shown. A reply that no
// longer extends it (an error replacing partial text) starts a fresh line.
func (p *streamPrinter) write(content string) {
	if strings.HasPrefix(content, p.printed) {
		fmt.Fprint(p.out, content[len(p.printed):])
	} else {
		fmt.Fprintf(p.out, "\n%s", color.ColorError(content))
	}
	p.printed = content
}
