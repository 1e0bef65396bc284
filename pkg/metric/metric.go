// Package metric publishes counters via expvar along with a per-minute history of their values.
package metric

import (
	"container/list"
	"expvar"
	"strings"
	"time"
)

// historyLen is an hour of samples plus one, charts track deltas between values and the first
// value has nothing to compare against.
const historyLen = 61

// TickerFunc is the function signature accepted by AddTickerFunc, will be called once per minute.
type TickerFunc func()

var tickerFuncChan = make(chan TickerFunc)

func init() {
	go metricsTicker()
}

// AddTickerFunc adds a new function callback to the list of metrics TickerFuncs that get called
// each minute.
func AddTickerFunc(f TickerFunc) {
	tickerFuncChan <- f
}

// Push adds the metric to the end of the list and returns a comma separated string of the previous
// historyLen entries.
func Push(history *list.List, ev expvar.Var) string {
	history.PushBack(ev.String())
	if history.Len() > historyLen {
		history.Remove(history.Front())
	}
	return joinStringList(history)
}

// Track publishes v in m under name, and a per-minute history of v under name+"Hist".
func Track(m *expvar.Map, name string, v expvar.Var) {
	hist := list.New()
	rendered := new(expvar.String)
	m.Set(name, v)
	m.Set(name+"Hist", rendered)
	AddTickerFunc(func() {
		rendered.Set(Push(hist, v))
	})
}

// metricsTicker calls the current list of TickerFuncs once per minute.
func metricsTicker() {
	funcs := make([]TickerFunc, 0)
	ticker := time.NewTicker(time.Minute)

	for {
		select {
		case <-ticker.C:
			for _, f := range funcs {
				f()
			}
		case f := <-tickerFuncChan:
			funcs = append(funcs, f)
		}
	}
}

// joinStringList joins a List containing strings by commas.
func joinStringList(listOfStrings *list.List) string {
	if listOfStrings.Len() == 0 {
		return ""
	}
	s := make([]string, 0, listOfStrings.Len())
	for e := listOfStrings.Front(); e != nil; e = e.Next() {
		s = append(s, e.Value.(string))
	}
	return strings.Join(s, ",")
}
