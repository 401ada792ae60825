// Package cache persists discovered devices between runs.
package cache

import (
	"fmt"
	"io/ioutil"
	"os"
	"sort"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/bluekelp/ble"
)

type deviceCache struct {
	filename string
	lock     sync.RWMutex
}

// New returns a DeviceCache backed by a JSON file. The file is created on
// the first Store.
func New(filename string) ble.DeviceCache {
	dc := deviceCache{
		filename: filename,
	}

	return &dc
}

func (dc *deviceCache) Store(d ble.Device, replace bool) error {
	dc.lock.Lock()
	defer dc.lock.Unlock()

	cache, err := dc.loadExisting()
	if err != nil {
		return err
	}

	key := normalize(d.Addr)
	if key == "" {
		return fmt.Errorf("device without address")
	}

	if _, ok := cache[key]; ok && !replace {
		return fmt.Errorf("cache already contains device %s", key)
	}

	d.Addr = key
	cache[key] = d

	return dc.storeCache(cache)
}

func (dc *deviceCache) Load(mac ble.Addr) (ble.Device, error) {
	dc.lock.RLock()
	defer dc.lock.RUnlock()

	cache, err := dc.loadExisting()
	if err != nil {
		return ble.Device{}, err
	}

	d, ok := cache[normalize(mac.String())]
	if !ok {
		return ble.Device{}, fmt.Errorf("device %s not found in cache", mac.String())
	}

	return d, nil
}

func (dc *deviceCache) All() ([]ble.Device, error) {
	dc.lock.RLock()
	defer dc.lock.RUnlock()

	cache, err := dc.loadExisting()
	if err != nil {
		return nil, err
	}

	dd := make([]ble.Device, 0, len(cache))
	for _, d := range cache {
		dd = append(dd, d)
	}
	sort.Slice(dd, func(i, j int) bool { return dd[i].Addr < dd[j].Addr })

	return dd, nil
}

func (dc *deviceCache) Clear() error {
	dc.lock.Lock()
	defer dc.lock.Unlock()

	err := os.Remove(dc.filename)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

func (dc *deviceCache) loadExisting() (map[string]ble.Device, error) {
	_, err := os.Stat(dc.filename)
	if os.IsNotExist(err) {
		return map[string]ble.Device{}, nil
	}

	in, err := ioutil.ReadFile(dc.filename)
	if err != nil {
		return nil, err
	}

	var cache map[string]ble.Device
	if err := jsoniter.Unmarshal(in, &cache); err != nil {
		return nil, err
	}

	return cache, nil
}

func (dc *deviceCache) storeCache(cache map[string]ble.Device) error {
	out, err := jsoniter.Marshal(cache)
	if err != nil {
		return err
	}

	return ioutil.WriteFile(dc.filename, out, 0644)
}
