package peerstore

import (
	"encoding/json"
	"time"

	"github.com/dep2p/go-peerset/pkg/types"
)

// StorePrefix 节点信誉在存储引擎中的前缀
var StorePrefix = []byte("ps/r/")

// record 持久化的节点信誉，键为节点 ID
type record struct {
	Reputation  int32 `json:"reputation"`
	LastUpdated int64 `json:"last_updated"`
}

// load 从存储加载信誉，跳过损坏的记录
func (ps *Peerstore) load() error {
	var loaded, skipped int
	err := ps.store.PrefixScan(nil, func(key, value []byte) bool {
		var rec record
		if err := json.Unmarshal(value, &rec); err != nil || len(key) == 0 {
			skipped++
			return true
		}
		ps.peers[types.PeerID(key)] = &peerInfo{
			reputation:  rec.Reputation,
			lastUpdated: time.Unix(0, rec.LastUpdated),
		}
		loaded++
		return true
	})
	if err != nil {
		return err
	}
	logger.Debug("加载节点信誉", "loaded", loaded, "skipped", skipped)
	return nil
}

// flush 写入变更的节点；all 为 true 时写入全部节点
func (ps *Peerstore) flush(all bool) error {
	if ps.store == nil {
		return nil
	}

	ps.mu.Lock()
	ids := ps.dirty
	if all {
		ids = make(types.PeerIDSet, len(ps.peers)+len(ps.dirty))
		for id := range ps.peers {
			ids[id] = struct{}{}
		}
		for id := range ps.dirty {
			ids[id] = struct{}{}
		}
	}
	if len(ids) == 0 {
		ps.mu.Unlock()
		return nil
	}

	batch := ps.store.NewBatch()
	for id := range ids {
		info, ok := ps.peers[id]
		if !ok {
			batch.Delete([]byte(id))
			continue
		}
		if err := batch.PutJSON([]byte(id), record{
			Reputation:  info.reputation,
			LastUpdated: info.lastUpdated.UnixNano(),
		}); err != nil {
			batch.Cancel()
			ps.mu.Unlock()
			return err
		}
	}
	ps.dirty = make(types.PeerIDSet)
	ps.mu.Unlock()

	return batch.Write()
}
