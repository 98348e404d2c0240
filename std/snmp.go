// The MIT License (MIT)
//
// Copyright (c) 2020 jarvishomeauto
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package std

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jarvishomeauto/rppp/rppp"
)

// SnmpLogger periodically appends a snapshot of rppp.DefaultSnmp to a CSV
// file. The filename part of path goes through time.Format, so a path like
// ./snmp-20060102.log rolls daily.
func SnmpLogger(path string, interval int) {
	if path == "" || interval == 0 {
		return
	}
	// only the filename part is formatted
	logdir, logfile := filepath.Split(path)

	ticker := time.NewTicker(time.Duration(interval) * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		f, err := os.OpenFile(logdir+time.Now().Format(logfile), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Println(err)
			return
		}
		w := csv.NewWriter(f)
		// write header in empty file
		if stat, err := f.Stat(); err == nil && stat.Size() == 0 {
			if err := w.Write(append([]string{"Unix"}, rppp.DefaultSnmp.Header()...)); err != nil {
				log.Println(err)
			}
		}
		if err := w.Write(append([]string{fmt.Sprint(time.Now().Unix())}, rppp.DefaultSnmp.ToSlice()...)); err != nil {
			log.Println(err)
		}
		w.Flush()
		f.Close()
	}
}
