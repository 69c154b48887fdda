// Package analysis inspects recorded runs after the fact.
//
//   - [PowerSpectrum]: frequency content of a recorded series
//   - [ParticlePhase]: position against velocity for one particle
//   - [PhasePortraitToASCII]: braille rendering of a portrait
//
// # Oscillation
//
// A spring chain or elastic cloth settles into a dominant mode:
//
//	ps, err := analysis.PowerSpectrum(series["kinetic_energy"], rate)
//	if err == nil {
//	    freq, _ := ps.Dominant()
//	}
package analysis
