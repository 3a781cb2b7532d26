package domain

// Direction describes the clinical sense in which a higher numeric score reads.
type Direction string

const (
	HigherBetter Direction = "HIGHER_BETTER"
	LowerBetter  Direction = "LOWER_BETTER"
	MiddleBetter Direction = "MIDDLE_BETTER"
	NoDirection  Direction = "NONE"
)

// ResponseType is the declared shape of an Item's response.
type ResponseType string

const (
	ResponseText   ResponseType = "TEXT"
	ResponseNumber ResponseType = "NUMBER"
	ResponseLikert ResponseType = "LIKERT"
	ResponseRange  ResponseType = "RANGE"
)

// Combiner names the reduction a CompositeConstructScale applies to its inputs.
type Combiner string

const (
	CombineSum     Combiner = "SUM"
	CombineProduct Combiner = "PRODUCT"
	CombineMean    Combiner = "MEAN"
	CombineMedian  Combiner = "MEDIAN"
	CombineMode    Combiner = "MODE"
	CombineMin     Combiner = "MIN"
	CombineMax     Combiner = "MAX"
)

// Granularity is the unit the Time-Interval Bucketer buckets submissions into.
type Granularity string

const (
	GranularityDay   Granularity = "DAY"
	GranularityWeek  Granularity = "WEEK"
	GranularityMonth Granularity = "MONTH"
)

// AnchorKind names the entity a FilterContext's bucket anchor date derives from.
type AnchorKind string

const (
	AnchorRegistration  AnchorKind = "REGISTRATION"
	AnchorDiagnosis     AnchorKind = "DIAGNOSIS"
	AnchorTreatmentStart AnchorKind = "TREATMENT_START"
)

// AggregationType names a cohort summary statistic.
type AggregationType string

const (
	AggMedianIQR  AggregationType = "MEDIAN_IQR"
	AggMean95CI   AggregationType = "MEAN_95CI"
	AggMeanPM05SD AggregationType = "MEAN_PM_0_5_SD"
	AggMeanPM1SD  AggregationType = "MEAN_PM_1_SD"
	AggMeanPM15SD AggregationType = "MEAN_PM_1_5_SD"
	AggMeanPM2SD  AggregationType = "MEAN_PM_2_SD"
	AggMeanPM25SD AggregationType = "MEAN_PM_2_5_SD"
)

// ChangeDirection classifies a construct score's movement between submissions.
type ChangeDirection string

const (
	ChangeImproving ChangeDirection = "IMPROVING"
	ChangeWorsening ChangeDirection = "WORSENING"
	ChangeUnchanged ChangeDirection = "UNCHANGED"
	ChangeUnknown   ChangeDirection = "UNKNOWN"
)

// ReasonUsed names which fallback tier the Clinical Interpreter applied.
type ReasonUsed string

const (
	ReasonThreshold       ReasonUsed = "THRESHOLD"
	ReasonThresholdMID    ReasonUsed = "THRESHOLD_MID"
	ReasonNormative       ReasonUsed = "NORMATIVE"
	ReasonMID             ReasonUsed = "MID"
	ReasonNormativeSD     ReasonUsed = "NORMATIVE_SD"
	ReasonRatioFallback   ReasonUsed = "RATIO_FALLBACK"
	ReasonNotClassified   ReasonUsed = "NOT_CLASSIFIED"
)
