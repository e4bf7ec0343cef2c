package compiler

import (
	"sync"

	"github.com/sirupsen/logrus"

	"sorbet-validators/internal/model"
)

// DefaultFeedBuffer - сколько компиляций ждет медленного подписчика
const DefaultFeedBuffer = 16

// watcher - один подписчик ленты и число пропущенных им компиляций
type watcher struct {
	ch      chan model.Compilation
	dropped int
}

// Feed рассылает завершенные компиляции подписчикам WatchCompilations.
//
// Подписчику уходит облегченная копия без IR и содержимого файлов: стрим
// отдает сводку, а файлы клиент берет через GetFile. Publish никогда не
// блокирует Compile; если буфер подписчика полон, компиляция для него
// пропускается и учитывается в счетчике.
type Feed struct {
	mu       sync.Mutex
	watchers map[chan model.Compilation]*watcher
	buffer   int
	closed   bool
	log      logrus.FieldLogger
}

// NewFeed создает ленту; buffer <= 0 означает DefaultFeedBuffer
func NewFeed(buffer int, log logrus.FieldLogger) *Feed {
	if buffer <= 0 {
		buffer = DefaultFeedBuffer
	}
	return &Feed{
		watchers: make(map[chan model.Compilation]*watcher),
		buffer:   buffer,
		log:      log,
	}
}

// Subscribe регистрирует подписчика. После Close возвращает уже закрытый канал.
func (f *Feed) Subscribe() chan model.Compilation {
	ch := make(chan model.Compilation, f.buffer)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		close(ch)
		return ch
	}
	f.watchers[ch] = &watcher{ch: ch}
	return ch
}

// Unsubscribe удаляет подписчика и закрывает его канал; повторный вызов безопасен
func (f *Feed) Unsubscribe(ch chan model.Compilation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.watchers[ch]
	if !ok {
		return
	}
	delete(f.watchers, ch)
	close(ch)
	if w.dropped > 0 {
		f.log.WithField("dropped", w.dropped).Warn("watcher unsubscribed after missing compilations")
	}
}

// Publish отправляет сводку компиляции всем подписчикам и возвращает число
// подписчиков, которым она не поместилась.
func (f *Feed) Publish(c model.Compilation) int {
	summary := summarize(c)

	f.mu.Lock()
	defer f.mu.Unlock()
	missed := 0
	for _, w := range f.watchers {
		select {
		case w.ch <- summary:
		default:
			w.dropped++
			missed++
		}
	}
	if missed > 0 {
		f.log.WithFields(logrus.Fields{
			"id":       c.ID,
			"watchers": missed,
		}).Warn("compilation event dropped for slow watchers")
	}
	return missed
}

// Close закрывает каналы всех подписчиков; последующие Subscribe получают закрытый канал
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	for ch := range f.watchers {
		close(ch)
		delete(f.watchers, ch)
	}
}

// Subscribers возвращает число активных подписчиков
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.watchers)
}

func summarize(c model.Compilation) model.Compilation {
	out := c
	out.IR = nil
	out.Set = nil
	out.Files = make([]model.GeneratedFile, len(c.Files))
	for i, file := range c.Files {
		out.Files[i] = model.GeneratedFile{Path: file.Path}
	}
	return out
}
