package cache

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// The cache is a package used for generic objects that are expensive to
// build and never change once built, such as the line windows for a
// given board geometry. It is safe for concurrent use, so a bot serving
// many games at once shares one copy of each object.

type cache struct {
	sync.Mutex
	objects map[string]interface{}
}

type loadFunc func(key string) (interface{}, error)

// GlobalObjectCache is our global object cache, of course.
var GlobalObjectCache *cache
var createOnce sync.Once

func (c *cache) load(key string, loadFunc loadFunc) error {
	log.Debug().Str("key", key).Msg("loading into cache")

	obj, err := loadFunc(key)
	if err != nil {
		return err
	}
	c.objects[key] = obj

	return nil
}

func (c *cache) get(key string, loadFunc loadFunc) (interface{}, error) {
	c.Lock()
	defer c.Unlock()
	if obj, ok := c.objects[key]; ok {
		return obj, nil
	}
	if err := c.load(key, loadFunc); err != nil {
		return nil, err
	}
	return c.objects[key], nil
}

func (c *cache) len() int {
	c.Lock()
	defer c.Unlock()
	return len(c.objects)
}

func CreateGlobalObjectCache() {
	GlobalObjectCache = &cache{objects: make(map[string]interface{})}
}

// Load returns the object stored under name, calling loadFunc to build it
// the first time it is asked for. A failed load is not stored.
func Load(name string, loadFunc loadFunc) (interface{}, error) {
	createOnce.Do(func() {
		if GlobalObjectCache == nil {
			CreateGlobalObjectCache()
		}
	})
	return GlobalObjectCache.get(name, loadFunc)
}

// Size returns how many objects are cached.
func Size() int {
	if GlobalObjectCache == nil {
		return 0
	}
	return GlobalObjectCache.len()
}
