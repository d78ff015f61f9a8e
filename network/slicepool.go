package network

import (
	"sync"
)

type INetMempool interface {
	MakeByteSlice(size int) []byte
	ReleaseByteSlice(byteBuff []byte) bool
}

type memAreaPool struct {
	minAreaValue int
	maxAreaValue int
	growthValue  int
	pool         []sync.Pool
}

// 64 byte steps up to 2048, 2048 byte steps up to 64k
var memAreaPoolList = [2]*memAreaPool{
	{minAreaValue: 1, maxAreaValue: 2048, growthValue: 64},
	{minAreaValue: 2049, maxAreaValue: 65536, growthValue: 2048},
}

func init() {
	for i := 0; i < len(memAreaPoolList); i++ {
		memAreaPoolList[i].makePool()
	}
}

type MemAreaPool struct{}

func NewMemAreaPool() *MemAreaPool {
	return &MemAreaPool{}
}

func (areaPool *memAreaPool) memSize(pos int) int {
	return (areaPool.minAreaValue - 1) + (pos+1)*areaPool.growthValue
}

func (areaPool *memAreaPool) makePool() {
	poolLen := (areaPool.maxAreaValue - areaPool.minAreaValue + 1) / areaPool.growthValue
	areaPool.pool = make([]sync.Pool, poolLen)
	for i := 0; i < poolLen; i++ {
		memSize := areaPool.memSize(i)
		areaPool.pool[i] = sync.Pool{New: func() any {
			return make([]byte, memSize)
		}}
	}
}

func (areaPool *memAreaPool) getPosByteSize(size int) int {
	pos := (size - areaPool.minAreaValue) / areaPool.growthValue
	if pos < 0 || pos >= len(areaPool.pool) {
		return -1
	}

	return pos
}

func (areaPool *memAreaPool) makeByteSlice(size int) []byte {
	pos := areaPool.getPosByteSize(size)
	if pos == -1 {
		return make([]byte, size)
	}

	return areaPool.pool[pos].Get().([]byte)[:size]
}

// releaseByteSlice only takes back slices whose capacity matches a pool bucket.
func (areaPool *memAreaPool) releaseByteSlice(byteBuff []byte) bool {
	pos := areaPool.getPosByteSize(cap(byteBuff))
	if pos == -1 || areaPool.memSize(pos) != cap(byteBuff) {
		return false
	}

	areaPool.pool[pos].Put(byteBuff[:cap(byteBuff)])
	return true
}

func (p *MemAreaPool) MakeByteSlice(size int) []byte {
	for i := 0; i < len(memAreaPoolList); i++ {
		if size <= memAreaPoolList[i].maxAreaValue {
			return memAreaPoolList[i].makeByteSlice(size)
		}
	}

	return make([]byte, size)
}

func (p *MemAreaPool) ReleaseByteSlice(byteBuff []byte) bool {
	if byteBuff == nil {
		return false
	}

	for i := 0; i < len(memAreaPoolList); i++ {
		if cap(byteBuff) <= memAreaPoolList[i].maxAreaValue {
			return memAreaPoolList[i].releaseByteSlice(byteBuff)
		}
	}

	return false
}
