/*
Package driver runs design studies: a Driver proposes input records, an
Evaluator computes output records for them and the Driver decides, based on
outputs, whether to propose more.

	base, _ := kvfile.Read("data.in")
	d := &driver.ParamStudy{Variable: "panelRating", From: 200, To: 400, Steps: 5}
	res, err := driver.Run(ctx, d, solar.Evaluator(solar.Placeholder), base, nil)

Drivers:

  - ParamStudy sweeps one variable over a range
  - Minimizer steps one variable to minimize an output
  - MonteCarlo draws variables from distributions
  - LatinHypercube draws stratified samples from distributions
*/
package driver
