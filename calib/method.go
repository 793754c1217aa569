package calib

// Method is a calibration strategy which is fitted on a probability matrix with one-hot labels
// and can then transform new probabilities.
type Method interface {
	Name() string
	Fit(p Matrix, y [][]float64) error
	Apply(p Matrix) Matrix
	Record(params *Params)
}

var (
	_ Method = (*TemperatureScaler)(nil)
	_ Method = (*PlattScaler)(nil)
	_ Method = (*IsotonicCalibrator)(nil)
)

// Methods returns a fresh set of the calibration methods in a fixed order.
func Methods(conf Config) []Method {
	return []Method{
		NewTemperatureScaler(conf),
		NewPlattScaler(conf),
		NewIsotonicCalibrator(conf),
	}
}
