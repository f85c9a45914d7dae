package cache

import (
	"fmt"
	"time"
)

const testTTL = time.Hour

func postID(i int) string { return fmt.Sprintf("post-%02d", i) }
