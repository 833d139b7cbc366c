package collector

import "time"

var snapTime = time.Date(2024, 5, 1, 23, 50, 0, 0, time.UTC)
