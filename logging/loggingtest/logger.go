// Package loggingtest provides an in-memory implementation of the
// logging.Logger interface, to verify the log output of components in
// tests.
package loggingtest

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// Level of a recorded entry.
type Level string

const (
	ErrorLevel Level = "ERROR"
	WarnLevel  Level = "WARN"
	InfoLevel  Level = "INFO"
	DebugLevel Level = "DEBUG"
)

type entry struct {
	level Level
	msg   string
}

type logSubscription struct {
	exp      string
	n        int
	response chan<- struct{}
}

type countRequest struct {
	level    Level
	exp      string
	response chan<- int
}

type logWatch struct {
	entries []entry
	reqs    []*logSubscription
}

type TestLogger struct {
	save   chan entry
	notify chan<- logSubscription
	count  chan<- countRequest
	clear  chan struct{}
	mute   chan bool
	quit   chan struct{}
}

var ErrWaitTimeout = errors.New("timeout")

func (lw *logWatch) save(e entry) {
	lw.entries = append(lw.entries, e)
	for i := len(lw.reqs) - 1; i >= 0; i-- {
		req := lw.reqs[i]
		if strings.Contains(e.msg, req.exp) {
			req.n--
			if req.n <= 0 {
				close(req.response)
				lw.reqs = append(lw.reqs[:i], lw.reqs[i+1:]...)
			}
		}
	}
}

func (lw *logWatch) notify(req logSubscription) {
	for i := len(lw.entries) - 1; i >= 0; i-- {
		if strings.Contains(lw.entries[i].msg, req.exp) {
			req.n--
			if req.n == 0 {
				break
			}
		}
	}

	if req.n <= 0 {
		close(req.response)
	} else {
		lw.reqs = append(lw.reqs, &req)
	}
}

func (lw *logWatch) count(req countRequest) {
	var n int
	for _, e := range lw.entries {
		if (req.level == "" || e.level == req.level) && strings.Contains(e.msg, req.exp) {
			n++
		}
	}

	req.response <- n
}

func (lw *logWatch) clear() {
	lw.entries = nil
	lw.reqs = nil
}

func New() *TestLogger {
	lw := &logWatch{}
	save := make(chan entry)
	notify := make(chan logSubscription)
	count := make(chan countRequest)
	clear := make(chan struct{})
	mute := make(chan bool)
	quit := make(chan struct{})

	go func() {
		var muted bool
		for {
			select {
			case e := <-save:
				if !muted {
					lw.save(e)
				}
			case req := <-notify:
				lw.notify(req)
			case req := <-count:
				lw.count(req)
			case m := <-mute:
				muted = m
			case <-clear:
				lw.clear()
			case <-quit:
				return
			}
		}
	}()

	return &TestLogger{save, notify, count, clear, mute, quit}
}

func (tl *TestLogger) logf(l Level, f string, a ...interface{}) {
	msg := fmt.Sprintf(f, a...)
	log.Printf("[%s] %s", l, msg)
	tl.record(entry{l, msg})
}

func (tl *TestLogger) log(l Level, a ...interface{}) {
	msg := fmt.Sprint(a...)
	log.Printf("[%s] %s", l, msg)
	tl.record(entry{l, msg})
}

// entries logged after Close are dropped
func (tl *TestLogger) record(e entry) {
	select {
	case tl.save <- e:
	case <-tl.quit:
	}
}

// WaitForN blocks until at least n entries containing exp were logged, or
// the timeout expires.
func (tl *TestLogger) WaitForN(exp string, n int, to time.Duration) error {
	found := make(chan struct{}, 1)
	tl.notify <- logSubscription{exp, n, found}

	select {
	case <-found:
		return nil
	case <-time.After(to):
		return ErrWaitTimeout
	}
}

func (tl *TestLogger) WaitFor(exp string, to time.Duration) error {
	return tl.WaitForN(exp, 1, to)
}

// Count returns the number of entries, of any level, containing exp.
func (tl *TestLogger) Count(exp string) int {
	return tl.CountLevel("", exp)
}

// CountLevel returns the number of entries of level l containing exp.
func (tl *TestLogger) CountLevel(l Level, exp string) int {
	rsp := make(chan int, 1)
	tl.count <- countRequest{l, exp, rsp}
	return <-rsp
}

func (tl *TestLogger) Mute()   { tl.mute <- true }
func (tl *TestLogger) Unmute() { tl.mute <- false }

func (tl *TestLogger) Reset() {
	tl.clear <- struct{}{}
}

func (tl *TestLogger) Close() {
	close(tl.quit)
}

func (tl *TestLogger) Error(a ...interface{})            { tl.log(ErrorLevel, a...) }
func (tl *TestLogger) Errorf(f string, a ...interface{}) { tl.logf(ErrorLevel, f, a...) }
func (tl *TestLogger) Warn(a ...interface{})             { tl.log(WarnLevel, a...) }
func (tl *TestLogger) Warnf(f string, a ...interface{})  { tl.logf(WarnLevel, f, a...) }
func (tl *TestLogger) Info(a ...interface{})             { tl.log(InfoLevel, a...) }
func (tl *TestLogger) Infof(f string, a ...interface{})  { tl.logf(InfoLevel, f, a...) }
func (tl *TestLogger) Debug(a ...interface{})            { tl.log(DebugLevel, a...) }
func (tl *TestLogger) Debugf(f string, a ...interface{}) { tl.logf(DebugLevel, f, a...) }
