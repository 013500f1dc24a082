// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rxcore

import (
	"log"

	"code.hybscloud.com/atomix"
)

// ErrorHandler receives undeliverable errors: protocol violations
// and any secondary terminal that lost the race to be the
// first one delivered downstream.
type ErrorHandler func(err error)

// Plugins is the global, swappable error sink for undeliverable errors.
// Every protocol violation detected inside this package goes through
// Plugins.OnError instead of the user's Sink, because the Sink may
// already be terminated and must not receive a second signal.
var Plugins = &pluginsHub{}

type pluginsHub struct {
	handler atomix.Pointer[ErrorHandler]
}

func init() {
	h := ErrorHandler(defaultErrorHandler)
	Plugins.handler.StoreRelease(&h)
}

// SetErrorHandler installs h as the global error sink. Passing nil
// restores the default (log.Printf) handler.
func (p *pluginsHub) SetErrorHandler(h ErrorHandler) {
	if h == nil {
		h = defaultErrorHandler
	}
	p.handler.StoreRelease(&h)
}

// OnError reports an undeliverable error to the current handler.
func (p *pluginsHub) OnError(err error) {
	if err == nil {
		return
	}
	if h := p.handler.LoadAcquire(); h != nil {
		(*h)(err)
	}
}

func defaultErrorHandler(err error) {
	log.Printf("rxcore: undeliverable error: %v", err)
}
