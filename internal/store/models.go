package store

// City is a monitored location. Rows are created once from the static
// catalog and never updated or deleted.
type City struct {
	ID   uint    `gorm:"primaryKey" json:"-"`
	Name string  `gorm:"column:name;uniqueIndex" json:"name"`
	Lat  float64 `gorm:"column:lat" json:"lat"`
	Lon  float64 `gorm:"column:lon" json:"lon"`
}

func (City) TableName() string { return "cities" }

// WeatherRecord is one current-conditions snapshot. The table is
// append-only; duplicate (city, timestamp) pairs are possible after a
// poller restart and are kept as-is.
type WeatherRecord struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	City        string  `gorm:"column:city" json:"city"`
	Temp        float64 `gorm:"column:temp" json:"temp"`
	Clouds      int     `gorm:"column:clouds" json:"clouds"`
	Humidity    int     `gorm:"column:humidity" json:"humidity"`
	WindSpeed   float64 `gorm:"column:wind_speed" json:"wind_speed"`
	Description string  `gorm:"column:description" json:"description"`
	Timestamp   int64   `gorm:"column:timestamp" json:"timestamp"`
}

func (WeatherRecord) TableName() string { return "weather_data" }

// SunshineRecord is one derived daily sunshine value. (city, date) is
// unique; a second insert for the same pair is silently ignored.
type SunshineRecord struct {
	ID           uint    `gorm:"primaryKey" json:"-"`
	City         string  `gorm:"column:city;uniqueIndex:idx_city_date" json:"-"`
	Date         string  `gorm:"column:date;uniqueIndex:idx_city_date" json:"date"`
	SunnyPercent float64 `gorm:"column:sunny_percent" json:"sunny_percent"`
}

func (SunshineRecord) TableName() string { return "historical_sunshine" }

// SunshinePoint is the read-side shape served by the history endpoint.
type SunshinePoint struct {
	Date         string  `json:"date"`
	SunnyPercent float64 `json:"sunny_percent"`
}
